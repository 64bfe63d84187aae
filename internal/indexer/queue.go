package indexer

import (
	"sort"
	"sync"

	"expenseindex/internal/model"
)

// queue holds pending jobs ordered lowest-priority-first, FIFO within a
// priority class. All access is mutex-guarded; seq breaks ties so
// same-priority jobs preserve submission order even after a stable sort.
type queue struct {
	mu   sync.Mutex
	next []queuedJob
	seq  int
}

type queuedJob struct {
	job *model.IndexingJob
	seq int
}

func newQueue() *queue {
	return &queue{}
}

// push enqueues a job, assigning it the next submission sequence number.
func (q *queue) push(job *model.IndexingJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.next = append(q.next, queuedJob{job: job, seq: q.seq})
	q.sortLocked()
}

// popBatch removes and returns up to n jobs, lowest priority first.
func (q *queue) popBatch(n int) []*model.IndexingJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.next) {
		n = len(q.next)
	}
	if n <= 0 {
		return nil
	}
	out := make([]*model.IndexingJob, n)
	for i := 0; i < n; i++ {
		out[i] = q.next[i].job
	}
	q.next = q.next[n:]
	return out
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.next)
}

func (q *queue) sortLocked() {
	sort.SliceStable(q.next, func(i, j int) bool {
		if q.next[i].job.Priority != q.next[j].job.Priority {
			return q.next[i].job.Priority < q.next[j].job.Priority
		}
		return q.next[i].seq < q.next[j].seq
	})
}
