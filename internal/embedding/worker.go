package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/store"
	"forge/internal/types"
	"forge/internal/vocab"
)

// Refresher is the background pool that turns artifact text into stored
// vectors. Writers enqueue artifact IDs fire-and-forget; workers load
// the artifact, embed it, and record the EmbeddingStatus transition.
type Refresher struct {
	store  *store.Store
	engine Engine

	queue       chan string
	wg          sync.WaitGroup
	mu          sync.Mutex
	closed      bool
	maxRetries  int
	timeout     time.Duration
	backoffBase time.Duration
}

// NewRefresher starts the worker pool. Workers, QueueSize, and
// MaxRetries come from the embedding config section.
func NewRefresher(st *store.Store, engine Engine, cfg config.EmbeddingConfig) *Refresher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 256
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}

	r := &Refresher{
		store:       st,
		engine:      engine,
		queue:       make(chan string, queueSize),
		maxRetries:  maxRetries,
		timeout:     cfg.GetTimeout(),
		backoffBase: 500 * time.Millisecond,
	}
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.run()
	}

	logging.Embedding("Embedding refresher started: workers=%d queue=%d engine=%s",
		workers, queueSize, engine.Name())
	return r
}

// Enqueue schedules an artifact for a vector refresh. It never blocks:
// when the queue is full or the refresher is closed the request is
// dropped and false is returned. A dropped refresh costs recall, not
// correctness; retrieval treats a missing vector like a stale one.
func (r *Refresher) Enqueue(artifactID string) bool {
	if r == nil || artifactID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- artifactID:
		return true
	default:
		logging.EmbeddingWarn("Refresh queue full, dropping artifact %s", artifactID)
		return false
	}
}

// Close stops intake and waits for already-queued work to drain.
func (r *Refresher) Close() {
	if r == nil {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	logging.Embedding("Embedding refresher stopped")
}

func (r *Refresher) run() {
	defer r.wg.Done()
	for id := range r.queue {
		r.refresh(id)
	}
}

func (r *Refresher) refresh(artifactID string) {
	// Detached from any request; a refresh outlives the turn that
	// caused it. The budget covers every retry attempt plus backoff.
	budget := r.timeout*time.Duration(r.maxRetries) + time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	a, err := r.store.GetArtifact(ctx, artifactID)
	if err != nil {
		logging.EmbeddingWarn("Refresh lookup failed for %s: %v", artifactID, err)
		return
	}
	if a == nil || a.Status != types.StatusActive {
		logging.EmbeddingDebug("Skipping refresh for %s: artifact gone or deleted", artifactID)
		return
	}

	now := time.Now().UTC()
	if !vocab.Embeddable(a.Type) {
		r.setStatus(ctx, a.ID, types.EmbeddingSkipped, now)
		return
	}
	text := a.EmbeddingText()
	if strings.TrimSpace(text) == "" {
		r.setStatus(ctx, a.ID, types.EmbeddingSkipped, now)
		return
	}

	vec, err := r.embedWithRetry(ctx, text)
	if err != nil {
		logging.EmbeddingWarn("Embedding failed for %s after %d attempts: %v", a.ID, r.maxRetries, err)
		r.setStatus(ctx, a.ID, types.EmbeddingFailed, time.Now().UTC())
		return
	}

	now = time.Now().UTC()
	emb := types.ArtifactEmbedding{
		ArtifactID: a.ID,
		Model:      r.engine.Name(),
		Dimension:  len(vec),
		Vector:     EncodeVector(vec),
		CreatedAt:  now,
	}
	if err := r.store.UpsertEmbedding(ctx, emb); err != nil {
		logging.EmbeddingWarn("Failed to store vector for %s: %v", a.ID, err)
		r.setStatus(ctx, a.ID, types.EmbeddingFailed, now)
		return
	}
	r.setStatus(ctx, a.ID, types.EmbeddingReady, now)
	logging.EmbeddingDebug("Refreshed vector for %s: model=%s dim=%d", a.ID, emb.Model, emb.Dimension)
}

func (r *Refresher) setStatus(ctx context.Context, artifactID string, status types.EmbeddingStatus, now time.Time) {
	if err := r.store.SetEmbeddingStatus(ctx, artifactID, status, now); err != nil {
		logging.EmbeddingWarn("Failed to mark %s %s: %v", artifactID, status, err)
	}
}

func (r *Refresher) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoffBase << (attempt - 1)):
			}
		}
		vec, err := r.engine.Embed(ctx, text)
		if err == nil && len(vec) > 0 {
			return vec, nil
		}
		if err == nil {
			err = fmt.Errorf("engine returned an empty vector")
		}
		lastErr = err
	}
	return nil, lastErr
}
