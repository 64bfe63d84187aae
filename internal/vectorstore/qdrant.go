package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"expenseindex/internal/apperr"
	"expenseindex/internal/logging"
	"expenseindex/internal/model"
)

// payloadIDField stores the caller-supplied fragment ID in the point
// payload, since Qdrant point IDs must be a uint64 or UUID and fragment IDs
// are arbitrary strings.
const payloadIDField = "_fragment_id"

// Qdrant adapts a Qdrant collection to VectorStore. Point IDs are
// deterministic UUIDv5s derived from the fragment ID (uuid.NameSpaceOID),
// so re-upserting the same fragment ID overwrites the same point.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dimension  int
	log        logging.Logger
}

// QdrantConfig is the subset of config.Config a Qdrant adapter needs.
type QdrantConfig struct {
	Addr       string
	Collection string
	APIKey     string
	UseTLS     bool
	Dimension  int
}

// NewQdrant dials addr and ensures the configured collection exists with
// cosine distance and the given vector width.
func NewQdrant(ctx context.Context, cfg QdrantConfig, log logging.Logger) (*Qdrant, error) {
	host, port := splitHostPort(cfg.Addr)
	clientCfg := &qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: cfg.UseTLS,
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "dial qdrant", err)
	}

	q := &Qdrant{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		log:        log,
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "check qdrant collection", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "create qdrant collection", err)
	}
	return nil
}

func (q *Qdrant) Dimension() int { return q.dimension }

func (q *Qdrant) Close() error {
	return q.client.Close()
}

// pointID maps an arbitrary fragment ID to a stable Qdrant point UUID.
func pointID(fragmentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fragmentID)).String()
}

func (q *Qdrant) Upsert(ctx context.Context, rows []model.Fragment) ([]string, error) {
	var points []*qdrant.PointStruct
	var ids []string

	for _, f := range rows {
		if strings.TrimSpace(f.Content) == "" {
			if q.log != nil {
				q.log.Info("dropping fragment with empty content", map[string]any{
					"fragment_id": f.FragmentID,
					"document_id": f.DocumentID,
				})
			}
			continue
		}

		payload := map[string]*qdrant.Value{
			payloadIDField: qdrant.NewValueString(f.FragmentID),
			"tenant":       qdrant.NewValueString(f.Tenant),
			"document_id":  qdrant.NewValueString(f.DocumentID),
			"content":      qdrant.NewValueString(f.Content),
			"chunk_index":  qdrant.NewValueInt(int64(f.ChunkIndex)),
			"chunk_type":   qdrant.NewValueString(string(f.ChunkType)),
			"start_char":   qdrant.NewValueInt(int64(f.StartChar)),
			"end_char":     qdrant.NewValueInt(int64(f.EndChar)),
			"amount":       qdrant.NewValueDouble(f.Amount),
			"category":     qdrant.NewValueString(f.Category),
			"merchant":     qdrant.NewValueString(f.Merchant),
			"expense_date": qdrant.NewValueString(f.ExpenseDate),
			"doc_type":     qdrant.NewValueString(f.DocumentType),
			"source_url":   qdrant.NewValueString(f.SourceURL),
			"metadata":     qdrant.NewValueString(f.MetadataJSON),
		}
		if f.ParentFragmentID != "" {
			payload["parent_fragment_id"] = qdrant.NewValueString(f.ParentFragmentID)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(f.FragmentID)),
			Vectors: qdrant.NewVectors(f.Vector...),
			Payload: payload,
		})
		ids = append(ids, f.FragmentID)
	}

	if len(points) == 0 {
		return ids, nil
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "upsert fragments", err)
	}
	return ids, nil
}

func (q *Qdrant) Search(ctx context.Context, queryVector []float32, tenant string, k int, filters Filters, threshold float64) ([]SearchResult, error) {
	if strings.TrimSpace(tenant) == "" {
		return nil, apperr.Wrap(apperr.KindBadRequest, "search requires a tenant", nil)
	}

	must := []*qdrant.Condition{
		qdrant.NewMatch("tenant", tenant),
	}
	must = append(must, filterConditions(filters)...)

	limit := uint64(k)
	withPayload := true
	resp, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          &limit,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: withPayload}},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "search fragments", err)
	}

	var out []SearchResult
	for _, pt := range resp {
		// The collection is configured with Cosine distance, so GetScore
		// returns raw cosine similarity; fold it through the same
		// distance-based similarity every backend reports.
		score := similarityFromCosine(float64(pt.GetScore()))
		if score < threshold {
			continue
		}
		out = append(out, SearchResult{
			Fragment: fragmentFromPayload(pt.GetPayload()),
			Score:    score,
		})
	}
	return out, nil
}

func (q *Qdrant) GetByDocument(ctx context.Context, documentID string) ([]model.Fragment, error) {
	limit := uint64(10000)
	withPayload := true
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
		},
		Limit:       &limit,
		WithPayload: &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: withPayload}},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "scroll document fragments", err)
	}

	out := make([]model.Fragment, 0, len(points))
	for _, pt := range points {
		out = append(out, fragmentFromPayload(pt.GetPayload()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (q *Qdrant) Delete(ctx context.Context, documentID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
		}),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "delete document fragments", err)
	}
	return nil
}

func (q *Qdrant) Stats(ctx context.Context, tenant string) (Stats, error) {
	filter := &qdrant.Filter{}
	if tenant != "" {
		filter.Must = []*qdrant.Condition{qdrant.NewMatch("tenant", tenant)}
	}
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         filter,
	})
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "count fragments", err)
	}

	// Unique document/business counts require a full scroll; Qdrant has no
	// native DISTINCT-count. Acceptable for the stats endpoint's modest
	// cardinality; the scroll filter reuses the tenant predicate above.
	limit := uint64(10000)
	withPayload := true
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collection,
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: withPayload}},
	})
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "scroll for stats", err)
	}

	docs := map[string]struct{}{}
	merchants := map[string]struct{}{}
	for _, pt := range points {
		payload := pt.GetPayload()
		if v, ok := payload["document_id"]; ok {
			docs[v.GetStringValue()] = struct{}{}
		}
		if v, ok := payload["merchant"]; ok && v.GetStringValue() != "" {
			merchants[v.GetStringValue()] = struct{}{}
		}
	}

	return Stats{
		TotalChunks:      int(count),
		UniqueDocuments:  len(docs),
		UniqueBusinesses: len(merchants),
	}, nil
}

func filterConditions(f Filters) []*qdrant.Condition {
	var conds []*qdrant.Condition
	if f.Category != "" {
		conds = append(conds, qdrant.NewMatch("category", f.Category))
	}
	if f.Merchant != "" {
		conds = append(conds, qdrant.NewMatchText("merchant", f.Merchant))
	}
	if f.DocumentType != "" {
		conds = append(conds, qdrant.NewMatch("doc_type", f.DocumentType))
	}
	if f.Amount != nil {
		conds = append(conds, amountCondition(*f.Amount))
	}
	for k, v := range f.MetadataContains {
		conds = append(conds, qdrant.NewMatchText("metadata", fmt.Sprintf("%q:%q", k, v)))
	}
	return conds
}

func amountCondition(af AmountFilter) *qdrant.Condition {
	r := &qdrant.Range{}
	switch af.Op {
	case model.OpEqual:
		return qdrant.NewMatch("amount", af.Value)
	case model.OpLessThan:
		r.Lt = &af.Value
	case model.OpLessEqual:
		r.Lte = &af.Value
	case model.OpGreaterThan:
		r.Gt = &af.Value
	case model.OpGreaterEqual:
		r.Gte = &af.Value
	}
	return qdrant.NewRange("amount", r)
}

func fragmentFromPayload(payload map[string]*qdrant.Value) model.Fragment {
	get := func(k string) string {
		if v, ok := payload[k]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	getInt := func(k string) int {
		if v, ok := payload[k]; ok {
			return int(v.GetIntegerValue())
		}
		return 0
	}
	getFloat := func(k string) float64 {
		if v, ok := payload[k]; ok {
			return v.GetDoubleValue()
		}
		return 0
	}

	return model.Fragment{
		FragmentID:       get(payloadIDField),
		Tenant:           get("tenant"),
		DocumentID:       get("document_id"),
		Content:          get("content"),
		ChunkIndex:       getInt("chunk_index"),
		ChunkType:        model.ChunkType(get("chunk_type")),
		ParentFragmentID: get("parent_fragment_id"),
		StartChar:        getInt("start_char"),
		EndChar:          getInt("end_char"),
		Amount:           getFloat("amount"),
		Category:         get("category"),
		Merchant:         get("merchant"),
		ExpenseDate:      get("expense_date"),
		DocumentType:     get("doc_type"),
		SourceURL:        get("source_url"),
		MetadataJSON:     get("metadata"),
	}
}

func splitHostPort(addr string) (string, int) {
	host := addr
	port := 6334
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		host = addr[:idx]
		var p int
		if _, err := fmt.Sscanf(addr[idx+1:], "%d", &p); err == nil && p > 0 {
			port = p
		}
	}
	return host, port
}
