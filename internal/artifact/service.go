// Package artifact owns the lifecycle of stored user content: create,
// update, soft delete, linking, and the hook that keeps vectors fresh.
// Reads never reveal content the caller cannot see; write authorization
// failures are explicit errors, never silent no-ops.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"forge/internal/logging"
	"forge/internal/store"
	"forge/internal/types"
	"forge/internal/vocab"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrNotFound covers both truly absent artifacts and artifacts the
	// caller is not allowed to know exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrNotOwner is returned when a caller tries to modify another
	// user's artifact.
	ErrNotOwner = errors.New("artifact is owned by another user")
)

// threadTraversalCap bounds how many artifacts a Thread reconstruction
// will visit. Threads are conversational follow-up chains; anything this
// long is a data problem, not a thread.
const threadTraversalCap = 50

// Enqueuer accepts artifact ids for background vector refresh.
// *embedding.Refresher satisfies it.
type Enqueuer interface {
	Enqueue(artifactID string) bool
}

// Service implements artifact CRUD and relationships over the store.
type Service struct {
	store   *store.Store
	refresh Enqueuer
}

// NewService creates an artifact service. refresh may be nil, in which
// case vectors are simply never refreshed (retrieval degrades, writes
// do not).
func NewService(st *store.Store, refresh Enqueuer) *Service {
	return &Service{store: st, refresh: refresh}
}

// CreateInput carries the caller-supplied fields for a new artifact.
type CreateInput struct {
	UserID         string
	GroupID        string
	ConversationID string
	SessionID      string
	Type           string
	Scope          string
	Title          string
	Content        string
	ScriptureRefs  []string
	Tags           []string
	Metadata       map[string]string
}

// Create validates the input, stores a new artifact, and schedules an
// embedding refresh for embeddable types. The write never waits on the
// refresh.
func (s *Service) Create(ctx context.Context, in CreateInput) (*types.Artifact, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return nil, fmt.Errorf("artifact requires a user id")
	}
	if !vocab.ValidArtifactType(in.Type) {
		return nil, fmt.Errorf("invalid artifact type: %q", in.Type)
	}
	if in.Scope == "" {
		in.Scope = string(vocab.ScopePrivate)
	}
	if !vocab.ValidArtifactScope(in.Scope) {
		return nil, fmt.Errorf("invalid artifact scope: %q", in.Scope)
	}
	if vocab.ArtifactScope(in.Scope) == vocab.ScopeGroup && strings.TrimSpace(in.GroupID) == "" {
		return nil, fmt.Errorf("group-scoped artifacts require a group id")
	}

	now := time.Now().UTC()
	a := &types.Artifact{
		ID:              ulid.Make().String(),
		UserID:          in.UserID,
		GroupID:         strings.TrimSpace(in.GroupID),
		ConversationID:  in.ConversationID,
		SessionID:       in.SessionID,
		Type:            vocab.ArtifactType(in.Type),
		Scope:           vocab.ArtifactScope(in.Scope),
		Title:           strings.TrimSpace(in.Title),
		Content:         strings.TrimSpace(in.Content),
		ScriptureRefs:   in.ScriptureRefs,
		Tags:            in.Tags,
		Metadata:        in.Metadata,
		Status:          types.StatusActive,
		EmbeddingStatus: types.EmbeddingSkipped,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if vocab.Embeddable(a.Type) {
		a.EmbeddingStatus = types.EmbeddingPending
	}

	if err := s.store.InsertArtifact(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	logging.Artifact("Created artifact %s: type=%s scope=%s user=%s", a.ID, a.Type, a.Scope, a.UserID)
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditArtifactCreate,
		Category:  string(logging.CategoryArtifact),
		UserID:    a.UserID,
		Target:    a.ID,
		Success:   true,
		Fields: map[string]interface{}{
			"type":  string(a.Type),
			"scope": string(a.Scope),
		},
	})

	s.scheduleRefresh(a)
	return a, nil
}

// Get returns an artifact the viewer is allowed to see. Absent, deleted,
// and not-visible all collapse to ErrNotFound so callers cannot probe
// for other users' content.
func (s *Service) Get(ctx context.Context, userID, id string, groupIDs []string) (*types.Artifact, error) {
	a, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Status != types.StatusActive {
		return nil, ErrNotFound
	}
	if !CanView(a, userID, groupIDs) {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns the caller's artifacts matching the filter. The filter's
// UserID is forced to the caller, so List never crosses users.
func (s *Service) List(ctx context.Context, userID string, f store.ArtifactFilter) ([]*types.Artifact, error) {
	f.UserID = userID
	return s.store.ListArtifacts(ctx, f)
}

// UpdateInput is a partial update: nil pointer fields stay unchanged,
// and nil slices/maps stay unchanged.
type UpdateInput struct {
	Title         *string
	Content       *string
	ScriptureRefs []string
	Tags          []string
	Metadata      map[string]string
}

// Update applies a partial update to an artifact the caller owns. A
// change to title, content, or scripture refs invalidates the stored
// vector and schedules a refresh.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*types.Artifact, error) {
	a, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Status != types.StatusActive {
		return nil, ErrNotFound
	}
	if a.UserID != userID {
		logging.ArtifactWarn("Rejected update of %s: caller %s is not the owner", id, userID)
		return nil, ErrNotOwner
	}

	contentChanged := false
	if in.Title != nil && strings.TrimSpace(*in.Title) != a.Title {
		a.Title = strings.TrimSpace(*in.Title)
		contentChanged = true
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) != a.Content {
		a.Content = strings.TrimSpace(*in.Content)
		contentChanged = true
	}
	if in.ScriptureRefs != nil {
		a.ScriptureRefs = in.ScriptureRefs
		contentChanged = true
	}
	if in.Tags != nil {
		a.Tags = in.Tags
	}
	if in.Metadata != nil {
		a.Metadata = in.Metadata
	}

	a.UpdatedAt = time.Now().UTC()
	if contentChanged && vocab.Embeddable(a.Type) {
		a.EmbeddingStatus = types.EmbeddingPending
	}

	if err := s.store.UpdateArtifact(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update artifact: %w", err)
	}

	if contentChanged {
		s.scheduleRefresh(a)
	}
	return a, nil
}

// Delete soft-deletes an artifact the caller owns. The stored vectors go
// with it in the same transaction; a deleted artifact must never be
// reachable through similarity search.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	a, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return err
	}
	if a == nil || a.Status != types.StatusActive {
		return ErrNotFound
	}
	if a.UserID != userID {
		logging.ArtifactWarn("Rejected delete of %s: caller %s is not the owner", id, userID)
		return ErrNotOwner
	}

	if err := s.store.SoftDeleteArtifact(ctx, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	logging.Artifact("Deleted artifact %s: user=%s", id, userID)
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditArtifactDelete,
		Category:  string(logging.CategoryArtifact),
		UserID:    userID,
		Target:    id,
		Success:   true,
	})
	return nil
}

// Link records a directed relation between two artifacts the caller
// owns. Re-linking the same pair with the same relation is a no-op.
func (s *Service) Link(ctx context.Context, userID, fromID, toID, relation string) error {
	if !vocab.ValidEdgeRelation(relation) {
		return fmt.Errorf("invalid edge relation: %q", relation)
	}
	if fromID == toID {
		return fmt.Errorf("cannot link an artifact to itself")
	}

	for _, id := range []string{fromID, toID} {
		a, err := s.store.GetArtifact(ctx, id)
		if err != nil {
			return err
		}
		if a == nil || a.Status != types.StatusActive {
			return ErrNotFound
		}
		if a.UserID != userID {
			return ErrNotOwner
		}
	}

	edge := types.ArtifactEdge{
		FromID:    fromID,
		ToID:      toID,
		Relation:  vocab.EdgeRelation(relation),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertEdge(ctx, edge); err != nil {
		return fmt.Errorf("failed to link artifacts: %w", err)
	}
	logging.ArtifactDebug("Linked %s -[%s]-> %s", fromID, relation, toID)
	return nil
}

// Thread reconstructs the conversational chain an artifact belongs to by
// walking follows_up and part_of_thread edges in both directions. The
// result is ordered oldest first and includes the starting artifact.
// Traversal is cycle-safe and visits at most threadTraversalCap nodes.
func (s *Service) Thread(ctx context.Context, userID, id string) ([]*types.Artifact, error) {
	start, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if start == nil || start.Status != types.StatusActive {
		return nil, ErrNotFound
	}
	if start.UserID != userID {
		return nil, ErrNotFound
	}

	visited := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 && len(visited) < threadTraversalCap {
		current := queue[0]
		queue = queue[1:]

		neighbors, err := s.threadNeighbors(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
			if len(visited) >= threadTraversalCap {
				break
			}
		}
	}

	ids := make([]string, 0, len(visited))
	for v := range visited {
		ids = append(ids, v)
	}
	byID, err := s.store.GetArtifactsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	thread := make([]*types.Artifact, 0, len(byID))
	for _, a := range byID {
		if a.Status != types.StatusActive || a.UserID != userID {
			continue
		}
		thread = append(thread, a)
	}
	sortByCreatedAt(thread)
	return thread, nil
}

func (s *Service) threadNeighbors(ctx context.Context, id string) ([]string, error) {
	out, err := s.store.EdgesFrom(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := s.store.EdgesTo(ctx, id)
	if err != nil {
		return nil, err
	}

	neighbors := make([]string, 0, len(out)+len(in))
	for _, e := range out {
		if threadRelation(e.Relation) {
			neighbors = append(neighbors, e.ToID)
		}
	}
	for _, e := range in {
		if threadRelation(e.Relation) {
			neighbors = append(neighbors, e.FromID)
		}
	}
	return neighbors, nil
}

func threadRelation(r vocab.EdgeRelation) bool {
	return r == vocab.RelationFollowsUp || r == vocab.RelationPartOfThread
}

func sortByCreatedAt(artifacts []*types.Artifact) {
	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAt.Equal(artifacts[j].CreatedAt) {
			return artifacts[i].ID < artifacts[j].ID
		}
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})
}

func (s *Service) scheduleRefresh(a *types.Artifact) {
	if s.refresh == nil || !vocab.Embeddable(a.Type) {
		return
	}
	if !s.refresh.Enqueue(a.ID) {
		logging.ArtifactWarn("Embedding refresh not scheduled for %s", a.ID)
	}
}

// CanView reports whether userID (with the given group memberships) may
// read the artifact. Retrieval uses the same predicate for its access
// pass, so visibility rules live in exactly one place.
func CanView(a *types.Artifact, userID string, groupIDs []string) bool {
	if a == nil {
		return false
	}
	switch a.Scope {
	case vocab.ScopePrivate:
		return a.UserID == userID
	case vocab.ScopeGroup:
		if a.UserID == userID {
			return true
		}
		for _, g := range groupIDs {
			if g != "" && g == a.GroupID {
				return true
			}
		}
		return false
	case vocab.ScopeGlobal:
		return true
	default:
		return false
	}
}
