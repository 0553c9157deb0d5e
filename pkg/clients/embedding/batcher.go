package embedding

import (
	"context"
	"sync"
	"time"
)

type batchRequest struct {
	ctx    context.Context
	text   string
	result chan batchResult
}

type batchResult struct {
	vector Vector
	err    error
}

// batcher coalesces individual embed calls into batches of up to BatchSize,
// flushed either when full or after BatchLatency has elapsed since the
// first pending item. immediate=true calls bypass it entirely.
type batcher struct {
	batchSize int
	latency   time.Duration

	mu      sync.Mutex
	pending []*batchRequest
	timer   *time.Timer

	flush func(ctx context.Context, texts []string) ([]Vector, []error)
}

func newBatcher(batchSize int, latency time.Duration, flush func(ctx context.Context, texts []string) ([]Vector, []error)) *batcher {
	return &batcher{batchSize: batchSize, latency: latency, flush: flush}
}

// submit enqueues one text and blocks until its result is ready.
func (b *batcher) submit(ctx context.Context, text string) (Vector, error) {
	req := &batchRequest{ctx: ctx, text: text, result: make(chan batchResult, 1)}

	b.mu.Lock()
	b.pending = append(b.pending, req)
	full := len(b.pending) >= b.batchSize
	if full {
		batch := b.pending
		b.pending = nil
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
		b.mu.Unlock()
		b.runBatch(batch)
	} else {
		if b.timer == nil {
			b.timer = time.AfterFunc(b.latency, b.flushPending)
		}
		b.mu.Unlock()
	}

	select {
	case res := <-req.result:
		return res.vector, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *batcher) flushPending() {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.timer = nil
	b.mu.Unlock()
	if len(batch) > 0 {
		b.runBatch(batch)
	}
}

func (b *batcher) runBatch(batch []*batchRequest) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.text
	}
	vectors, errs := b.flush(context.Background(), texts)
	for i, r := range batch {
		var v Vector
		var err error
		if i < len(vectors) {
			v = vectors[i]
		}
		if i < len(errs) {
			err = errs[i]
		}
		r.result <- batchResult{vector: v, err: err}
	}
}
