package indexer

import (
	"context"
	"encoding/json"
	"time"

	"expenseindex/internal/apperr"
	"expenseindex/internal/cache"
	"expenseindex/internal/chunker"
	"expenseindex/internal/model"
)

// run is the dispatch loop: it wakes on a new submission or a tick, pulls a
// batch of pending jobs in priority order, and hands each to a worker slot.
// When stopCh is closed it dispatches one final batch and returns; it does
// not wait for in-flight jobs to finish.
func (ix *Indexer) run() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		ix.dispatchBatch()

		select {
		case <-ix.wake:
		case <-ticker.C:
		case <-ix.stopCh:
			ix.dispatchBatch()
			return
		}
	}
}

func (ix *Indexer) dispatchBatch() {
	batch := ix.q.popBatch(ix.batchSize)
	for _, job := range batch {
		ix.sem <- struct{}{}
		ix.mu.Lock()
		ix.active[job.JobID] = struct{}{}
		ix.mu.Unlock()

		ix.wg.Add(1)
		go func(job *model.IndexingJob) {
			defer ix.wg.Done()
			defer func() { <-ix.sem }()
			ix.process(job)
		}(job)
	}
}

// process drives one job through parse -> chunk -> embed -> persist,
// honoring the per-job processing timeout and the retry/backoff policy on
// TRANSIENT failures. Every write to job's fields takes ix.mu, matching
// GetJob's locked read of the same struct.
func (ix *Indexer) process(job *model.IndexingJob) {
	ctx := context.Background()
	if ix.processingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.processingTimeout)
		defer cancel()
	}

	startedAt := ix.clock.Now()
	ix.mu.Lock()
	job.Status = model.StatusProcessing
	job.StartedAt = startedAt
	ix.mu.Unlock()
	ix.setStage(job, model.StagePending, job.Progress.Percentage)

	chunksCreated, err := ix.runPipeline(ctx, job)

	ix.mu.Lock()
	delete(ix.active, job.JobID)
	elapsed := ix.clock.Now().Sub(job.StartedAt).Seconds()
	job.ProcessingTimeSeconds += elapsed
	ix.mu.Unlock()

	if err == nil {
		ix.markCompleted(job, chunksCreated)
		return
	}

	kind, transient := apperr.Classify(err)

	ix.mu.Lock()
	job.ErrorMessage = err.Error()
	retry := transient && job.RetryCount < ix.maxRetries
	var attempt int
	if retry {
		job.RetryCount++
		job.Status = model.StatusPending
		attempt = job.RetryCount
	}
	ix.mu.Unlock()

	if retry {
		delay := backoffDelay(attempt - 1)
		if ix.log != nil {
			ix.log.Info("retrying job after transient failure", map[string]any{
				"job_id": job.JobID, "kind": string(kind), "attempt": attempt, "delay_ms": delay.Milliseconds(),
			})
		}
		ix.wg.Add(1)
		go func() {
			defer ix.wg.Done()
			select {
			case <-time.After(delay):
			case <-ix.stopCh:
			}
			ix.q.push(job)
			ix.signal()
		}()
		return
	}

	ix.markFailed(job)
}

// runPipeline executes parse, chunk, embed, and persist in strict order,
// returning the number of fragments persisted.
func (ix *Indexer) runPipeline(ctx context.Context, job *model.IndexingJob) (int, error) {
	ix.setStage(job, model.StageParsing, 10)

	result, err := ix.parsers.Parse(job.SourceBytes, job.MIMEType, job.SourceURL)
	if err != nil {
		return 0, err
	}
	if result.Text == "" {
		return 0, apperr.Wrap(apperr.KindEmptyContent, "parser produced no text", nil)
	}
	ix.setStage(job, model.StageChunking, 40)

	strategy, _ := chunker.Route(result.Class, ix.embed)
	chunks, err := strategy.Chunk(result.Text)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "chunking failed", err)
	}
	if len(chunks) == 0 {
		return 0, apperr.Wrap(apperr.KindEmptyContent, "chunker produced zero fragments", nil)
	}
	ix.setStage(job, model.StageIndexing, 80)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamUnavailable, "embedding failed", err)
	}

	fragments := ix.buildFragments(job, chunks, vectors)

	total := 0
	for start := 0; start < len(fragments); start += ix.chunkBatchSize {
		end := start + ix.chunkBatchSize
		if end > len(fragments) || ix.chunkBatchSize <= 0 {
			end = len(fragments)
		}
		accepted, err := ix.store.Upsert(ctx, fragments[start:end])
		if err != nil {
			return total, apperr.Wrap(apperr.KindUpstreamUnavailable, "upsert fragments", err)
		}
		total += len(accepted)
		if ix.chunkBatchSize <= 0 {
			break
		}
	}

	ix.setStage(job, model.StageCompleted, 100)
	return total, nil
}

// recognisedMetaKeys are the caller-metadata keys copied into typed fragment
// columns; everything else is folded into metadata_json.
var recognisedMetaKeys = map[string]struct{}{
	"amount": {}, "category": {}, "merchant": {},
	"expense_date": {}, "document_type": {}, "source_url": {},
}

func (ix *Indexer) buildFragments(job *model.IndexingJob, chunks []chunker.Chunk, vectors [][]float32) []model.Fragment {
	amount, category, merchant, expenseDate, docType, sourceURL, metadataJSON := splitMetadata(job.CallerMeta)
	if sourceURL == "" {
		sourceURL = job.SourceURL
	}

	fragmentIDs := make([]string, len(chunks))
	for i, c := range chunks {
		fragmentIDs[i] = chunker.FragmentID(job.DocID, i, c.Text)
	}

	now := ix.clock.Now()
	fragments := make([]model.Fragment, len(chunks))
	for i, c := range chunks {
		parentID := ""
		if c.ParentChunkIndex >= 0 && c.ParentChunkIndex < len(fragmentIDs) {
			parentID = fragmentIDs[c.ParentChunkIndex]
		}
		var vec []float32
		if i < len(vectors) {
			vec = vectors[i]
		}
		fragments[i] = model.Fragment{
			FragmentID:       fragmentIDs[i],
			Tenant:           job.Tenant,
			DocumentID:       job.DocID,
			Content:          c.Text,
			Vector:           vec,
			ChunkIndex:       i,
			ChunkType:        c.ChunkType,
			ParentFragmentID: parentID,
			StartChar:        c.StartChar,
			EndChar:          c.EndChar,
			Amount:           amount,
			Category:         category,
			Merchant:         merchant,
			ExpenseDate:      expenseDate,
			DocumentType:     docType,
			SourceURL:        sourceURL,
			MetadataJSON:     metadataJSON,
			CreatedAt:        now,
		}
	}
	return fragments
}

func splitMetadata(meta map[string]any) (amount float64, category, merchant, expenseDate, docType, sourceURL, metadataJSON string) {
	rest := map[string]any{}
	for k, v := range meta {
		if _, ok := recognisedMetaKeys[k]; !ok {
			rest[k] = v
			continue
		}
		switch k {
		case "amount":
			amount = toFloat(v)
		case "category":
			category, _ = v.(string)
		case "merchant":
			merchant, _ = v.(string)
		case "expense_date":
			expenseDate, _ = v.(string)
		case "document_type":
			docType, _ = v.(string)
		case "source_url":
			sourceURL, _ = v.(string)
		}
	}
	if len(rest) > 0 {
		if b, err := json.Marshal(rest); err == nil {
			metadataJSON = string(b)
		}
	}
	return
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// setStage takes ix.mu and advances job to stage, recording the previous
// stage's completion time and the new progress percentage.
func (ix *Indexer) setStage(job *model.IndexingJob, stage model.Stage, percentage int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	at := ix.clock.Now()
	if job.Progress.Stage != "" && job.Progress.Stage != stage {
		job.Progress.StagesCompleted = append(job.Progress.StagesCompleted, model.StageCompletion{
			Stage: job.Progress.Stage, CompletedAt: at,
		})
	}
	job.Progress.Stage = stage
	job.Progress.Percentage = percentage
}

func (ix *Indexer) markCompleted(job *model.IndexingJob, chunksCreated int) {
	completedAt := ix.clock.Now()

	// The cache entry is written before the job is marked completed, so a
	// caller that observes the completed status also gets the cache hit.
	if ix.cache != nil {
		_ = ix.cache.Put(context.Background(), job.Tenant, cacheHash(job), model.CacheEntry{
			JobID:          job.JobID,
			DocumentID:     job.DocID,
			ChunksCreated:  chunksCreated,
			ProcessingTime: job.ProcessingTimeSeconds,
		})
	}

	ix.mu.Lock()
	job.Status = model.StatusCompleted
	job.CompletedAt = completedAt
	job.ChunksCreated = chunksCreated
	processingTime := job.ProcessingTimeSeconds
	tenant := job.Tenant
	ix.completed++
	ix.accum.totalJobs++
	ix.accum.totalDocuments++
	ix.accum.totalFragments += chunksCreated
	ix.accum.totalProcessingTime += processingTime
	ix.accum.lastProcessedAt = completedAt
	ix.mu.Unlock()

	if ix.metrics != nil {
		ix.metrics.IncCounter("indexer_jobs_completed_total", map[string]string{"tenant": tenant})
		ix.metrics.ObserveHistogram("indexer_processing_time_seconds", processingTime, map[string]string{"tenant": tenant})
	}
	ix.notifyJobComplete(job)
}

func (ix *Indexer) markFailed(job *model.IndexingJob) {
	completedAt := ix.clock.Now()

	ix.mu.Lock()
	job.Status = model.StatusFailed
	job.CompletedAt = completedAt
	processingTime := job.ProcessingTimeSeconds
	errMsg := job.ErrorMessage
	ix.failed++
	ix.accum.totalJobs++
	ix.accum.totalProcessingTime += processingTime
	ix.accum.lastProcessedAt = completedAt
	ix.mu.Unlock()

	if ix.metrics != nil {
		ix.metrics.IncCounter("indexer_jobs_failed_total", map[string]string{"tenant": job.Tenant})
	}
	if ix.log != nil {
		ix.log.Error("job failed", map[string]any{"job_id": job.JobID, "error": errMsg})
	}
	ix.notifyJobComplete(job)
}

// notifyJobComplete takes a locked snapshot of job before handing it to the
// onComplete callbacks, which run outside the lock.
func (ix *Indexer) notifyJobComplete(job *model.IndexingJob) {
	ix.mu.Lock()
	snapshot := *job
	ix.mu.Unlock()
	for _, fn := range ix.onComplete {
		fn(snapshot)
	}
}

// cacheHash recovers the content hash of a job's source for the completion
// cache write. Submit already computed it; recomputing here keeps the cache
// write path independent of Submit's closure.
func cacheHash(job *model.IndexingJob) string {
	return cache.HashContent(job.SourceBytes)
}
