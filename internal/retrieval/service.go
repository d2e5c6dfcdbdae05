// Package retrieval answers "what stored context is relevant to this
// query" for a given caller. Ranking is vector similarity; visibility is
// a separate pass over the ranked superset, so access control never
// depends on ranking math. The output is a prompt-injectable block of
// short dated snippets.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/errgroup"

	"forge/internal/artifact"
	"forge/internal/config"
	"forge/internal/embedding"
	"forge/internal/logging"
	"forge/internal/safety"
	"forge/internal/store"
	"forge/internal/types"
	"forge/internal/vocab"
)

// Request describes one retrieval call.
type Request struct {
	Query    string
	UserID   string
	GroupIDs []string

	// Types restricts results to the listed artifact types; empty means
	// every type.
	Types []vocab.ArtifactType

	Limit int

	// IncludeGroupArtifacts opts in to group-scoped results. Without it
	// group artifacts are invisible even to their owner's own queries,
	// matching the allowed-scope contract.
	IncludeGroupArtifacts bool

	// Temporal knobs bias which candidate rows are scanned when the
	// corpus exceeds the scan cap.
	Since       time.Time
	Until       time.Time
	OldestFirst bool
}

// ApplyTemporal seeds the request's scan bounds from classified temporal
// knobs. Ranges are trailing windows ending at now, so only Since is set;
// "this_year" snaps to January 1. An empty direction leaves the scan
// order untouched.
func (r *Request) ApplyTemporal(dir vocab.TemporalDirection, rg vocab.TemporalRange, now time.Time) {
	switch dir {
	case vocab.TemporalOldest:
		r.OldestFirst = true
	case vocab.TemporalNewest:
		r.OldestFirst = false
	}
	if since, ok := rangeSince(rg, now); ok {
		r.Since = since
	}
}

func rangeSince(rg vocab.TemporalRange, now time.Time) (time.Time, bool) {
	switch rg {
	case vocab.RangeLastDay:
		return now.Add(-24 * time.Hour), true
	case vocab.RangeLastWeek:
		return now.AddDate(0, 0, -7), true
	case vocab.RangeLastMonth:
		return now.AddDate(0, -1, 0), true
	case vocab.RangeLast3Months:
		return now.AddDate(0, -3, 0), true
	case vocab.RangeLastYear:
		return now.AddDate(-1, 0, 0), true
	case vocab.RangeThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	}
	return time.Time{}, false
}

// Snippet is one formatted preview line, paired with the artifact it
// came from and its similarity to the query.
type Snippet struct {
	ArtifactID string
	Text       string
	Similarity float64
}

// Result is what a retrieval call hands back to the orchestrator.
type Result struct {
	Artifacts        []*types.Artifact
	Snippets         []Snippet
	FormattedContext string
}

// Service runs retrieval over the store with one embedding engine.
type Service struct {
	store      *store.Store
	engine     embedding.Engine
	queryCache *ristretto.Cache

	scanCap       int
	supersetSize  int
	defaultLimit  int
	snippetLength int
}

// NewService creates a retrieval service shaped by cfg; zero-valued cfg
// fields fall back to the config defaults. engine may be nil, in which
// case every retrieval degrades to an empty result.
func NewService(st *store.Store, engine embedding.Engine, cfg config.RetrievalConfig) (*Service, error) {
	def := config.DefaultRetrievalConfig()
	if cfg.CandidateScanCap <= 0 {
		cfg.CandidateScanCap = def.CandidateScanCap
	}
	if cfg.SupersetSize <= 0 {
		cfg.SupersetSize = def.SupersetSize
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = def.SnippetLength
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = def.QueryCacheSize
	}

	// Each cached query vector costs 1, so MaxCost is an entry count.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.QueryCacheSize) * 10,
		MaxCost:     int64(cfg.QueryCacheSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	return &Service{
		store:         st,
		engine:        engine,
		queryCache:    cache,
		scanCap:       cfg.CandidateScanCap,
		supersetSize:  cfg.SupersetSize,
		defaultLimit:  cfg.DefaultLimit,
		snippetLength: cfg.SnippetLength,
	}, nil
}

// Close releases the query cache.
func (s *Service) Close() {
	if s != nil && s.queryCache != nil {
		s.queryCache.Close()
	}
}

// Retrieve runs the full pipeline: embed the query, rank a candidate
// superset by cosine similarity, drop everything the caller cannot see,
// and format the survivors into snippets. Provider and storage trouble
// degrade to an empty result rather than failing the turn.
func (s *Service) Retrieve(ctx context.Context, req Request) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Retrieve")
	defer timer.Stop()

	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("retrieval requires a user id")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return &Result{}, nil
	}
	if s.engine == nil {
		logging.RetrievalDebug("No embedding engine configured; returning empty context")
		return &Result{}, nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	var queryVec []float32
	var candidates []types.ArtifactEmbedding

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := s.queryVector(gctx, req.Query)
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}
		queryVec = vec
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.LoadEmbeddingCandidates(gctx, store.EmbeddingScan{
			Model:       s.engine.Name(),
			Since:       req.Since,
			Until:       req.Until,
			OldestFirst: req.OldestFirst,
			Limit:       s.scanCap,
		})
		if err != nil {
			return fmt.Errorf("failed to load candidates: %w", err)
		}
		candidates = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		logging.RetrievalWarn("Retrieval degraded to empty context: %v", err)
		return &Result{}, nil
	}
	if len(candidates) == 0 {
		return &Result{}, nil
	}

	vecs := make([][]float32, len(candidates))
	for i, c := range candidates {
		vec, err := embedding.DecodeVector(c.Vector)
		if err != nil {
			logging.RetrievalWarn("Skipping undecodable vector for %s: %v", c.ArtifactID, err)
			continue
		}
		vecs[i] = vec
	}
	hits := embedding.FindTopK(queryVec, vecs, s.supersetSize)

	rankedIDs := make([]string, 0, len(hits))
	simByID := make(map[string]float64, len(hits))
	for _, h := range hits {
		id := candidates[h.Index].ArtifactID
		if _, seen := simByID[id]; seen {
			continue
		}
		rankedIDs = append(rankedIDs, id)
		simByID[id] = h.Similarity
	}

	byID, err := s.store.GetArtifactsByIDs(ctx, rankedIDs)
	if err != nil {
		logging.RetrievalWarn("Retrieval degraded to empty context: %v", err)
		return &Result{}, nil
	}

	kept := s.accessPass(req, limit, rankedIDs, byID)

	result := &Result{
		Artifacts: kept,
		Snippets:  make([]Snippet, 0, len(kept)),
	}
	if len(kept) == 0 {
		return result, nil
	}

	var b strings.Builder
	b.WriteString("Relevant saved context:\n")
	for _, a := range kept {
		line := formatSnippet(a, s.snippetLength)
		result.Snippets = append(result.Snippets, Snippet{
			ArtifactID: a.ID,
			Text:       line,
			Similarity: simByID[a.ID],
		})
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	result.FormattedContext = b.String()

	logging.Retrieval("Retrieved %d/%d artifacts for user %s", len(kept), len(rankedIDs), req.UserID)
	return result, nil
}

// accessPass walks the ranked superset in order and keeps what the
// caller may see, up to limit. Scope gating comes first: group scope is
// only on the table when the caller supplied groups and opted in.
func (s *Service) accessPass(req Request, limit int, rankedIDs []string, byID map[string]*types.Artifact) []*types.Artifact {
	groupsAllowed := req.IncludeGroupArtifacts && len(req.GroupIDs) > 0

	kept := make([]*types.Artifact, 0, limit)
	for _, id := range rankedIDs {
		a := byID[id]
		if a == nil || a.Status != types.StatusActive {
			continue
		}
		if a.Scope == vocab.ScopeGroup && !groupsAllowed {
			continue
		}
		if !artifact.CanView(a, req.UserID, req.GroupIDs) {
			continue
		}
		if len(req.Types) > 0 && !typeAllowed(a.Type, req.Types) {
			continue
		}
		if v := safety.Check(snippetSource(a)); !v.Allowed {
			logging.SafetyAudit(logging.AuditSafetyBlock, req.UserID, v.Reason, len(a.Content))
			continue
		}
		kept = append(kept, a)
		if len(kept) == limit {
			break
		}
	}
	return kept
}

func (s *Service) queryVector(ctx context.Context, query string) ([]float32, error) {
	key := queryCacheKey(s.engine.Name(), query)
	if cached, ok := s.queryCache.Get(key); ok {
		if vec, ok := cached.([]float32); ok {
			logging.RetrievalDebug("Query vector cache hit")
			return vec, nil
		}
	}

	vec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Set(key, vec, 1)
	return vec, nil
}

// queryCacheKey derives the cache key for a query's vector from the
// model name and a hash of the query text.
func queryCacheKey(model, query string) string {
	sum := sha256.Sum256([]byte(query))
	return model + ":" + hex.EncodeToString(sum[:16])
}

func typeAllowed(t vocab.ArtifactType, allowed []vocab.ArtifactType) bool {
	for _, want := range allowed {
		if t == want {
			return true
		}
	}
	return false
}

func snippetSource(a *types.Artifact) string {
	return strings.TrimSpace(a.Title + " " + a.Content)
}

// formatSnippet renders one dated, type-labeled preview line:
//
//	[2025-06-01] note: The shepherd psalm keeps coming back... (Psalm 23:1)
func formatSnippet(a *types.Artifact, previewLen int) string {
	text := a.Content
	if text == "" {
		text = a.Title
	}
	text = strings.Join(strings.Fields(text), " ")
	if truncated := types.Truncate(text, previewLen); truncated != text {
		text = truncated + "..."
	}

	line := fmt.Sprintf("[%s] %s: %s", a.CreatedAt.UTC().Format("2006-01-02"), a.Type, text)
	if len(a.ScriptureRefs) > 0 {
		line += fmt.Sprintf(" (%s)", a.ScriptureRefs[0])
	}
	return line
}
