package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"forge/internal/types"
	"forge/internal/vocab"
)

func testArtifact(id, userID string) *types.Artifact {
	return &types.Artifact{
		ID:              id,
		UserID:          userID,
		ConversationID:  "conv-1",
		Type:            vocab.ArtifactNote,
		Scope:           vocab.ScopePrivate,
		Title:           "Morning reflection",
		Content:         "Psalm 23 kept coming back to me today.",
		ScriptureRefs:   []string{"Psalm 23:1"},
		Tags:            []string{"psalms"},
		Status:          types.StatusActive,
		EmbeddingStatus: types.EmbeddingPending,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
}

func TestArtifactInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := testArtifact("art-1", "user-1")
	want.Metadata = map[string]string{"mood": "calm"}
	if err := s.InsertArtifact(ctx, want); err != nil {
		t.Fatalf("InsertArtifact error = %v", err)
	}

	got, err := s.GetArtifact(ctx, "art-1")
	if err != nil {
		t.Fatalf("GetArtifact error = %v", err)
	}
	if got == nil {
		t.Fatal("GetArtifact returned nil")
	}
	if got.Title != want.Title || got.Content != want.Content {
		t.Errorf("got %q/%q, want %q/%q", got.Title, got.Content, want.Title, want.Content)
	}
	if len(got.ScriptureRefs) != 1 || got.ScriptureRefs[0] != "Psalm 23:1" {
		t.Errorf("scripture refs = %v", got.ScriptureRefs)
	}
	if got.Metadata["mood"] != "calm" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, baseTime)
	}
}

func TestGetArtifactMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetArtifact(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetArtifact error = %v", err)
	}
	if got != nil {
		t.Errorf("GetArtifact = %+v, want nil", got)
	}
}

func TestUpdateArtifact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testArtifact("art-1", "user-1")
	if err := s.InsertArtifact(ctx, a); err != nil {
		t.Fatalf("InsertArtifact error = %v", err)
	}

	a.Content = "Updated content"
	a.Tags = []string{"psalms", "comfort"}
	a.UpdatedAt = baseTime.Add(time.Hour)
	if err := s.UpdateArtifact(ctx, a); err != nil {
		t.Fatalf("UpdateArtifact error = %v", err)
	}

	got, err := s.GetArtifact(ctx, "art-1")
	if err != nil {
		t.Fatalf("GetArtifact error = %v", err)
	}
	if got.Content != "Updated content" {
		t.Errorf("content = %q", got.Content)
	}
	if len(got.Tags) != 2 {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.UpdatedAt.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("updated at = %v", got.UpdatedAt)
	}

	missing := testArtifact("ghost", "user-1")
	if err := s.UpdateArtifact(ctx, missing); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("UpdateArtifact(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestSoftDeleteArtifactRemovesEmbeddings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testArtifact("art-1", "user-1")
	if err := s.InsertArtifact(ctx, a); err != nil {
		t.Fatalf("InsertArtifact error = %v", err)
	}
	emb := types.ArtifactEmbedding{
		ArtifactID: "art-1",
		Model:      "text-embedding-004",
		Dimension:  4,
		Vector:     []byte{0, 0, 128, 63, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		CreatedAt:  baseTime,
	}
	if err := s.UpsertEmbedding(ctx, emb); err != nil {
		t.Fatalf("UpsertEmbedding error = %v", err)
	}

	if err := s.SoftDeleteArtifact(ctx, "art-1", baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("SoftDeleteArtifact error = %v", err)
	}

	got, err := s.GetArtifact(ctx, "art-1")
	if err != nil {
		t.Fatalf("GetArtifact error = %v", err)
	}
	if got.Status != types.StatusDeleted {
		t.Errorf("status = %s, want deleted", got.Status)
	}

	stored, err := s.GetEmbedding(ctx, "art-1", "text-embedding-004")
	if err != nil {
		t.Fatalf("GetEmbedding error = %v", err)
	}
	if stored != nil {
		t.Error("embedding survived soft delete")
	}

	if err := s.SoftDeleteArtifact(ctx, "missing", baseTime); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("SoftDeleteArtifact(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestListArtifactsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(id string, artifactType vocab.ArtifactType, created time.Time, refs []string) {
		a := testArtifact(id, "user-1")
		a.Type = artifactType
		a.CreatedAt = created
		a.UpdatedAt = created
		a.ScriptureRefs = refs
		if err := s.InsertArtifact(ctx, a); err != nil {
			t.Fatalf("InsertArtifact(%s) error = %v", id, err)
		}
	}
	mk("a1", vocab.ArtifactNote, baseTime, []string{"John 3:16"})
	mk("a2", vocab.ArtifactPrayer, baseTime.Add(time.Hour), nil)
	mk("a3", vocab.ArtifactNote, baseTime.Add(2*time.Hour), []string{"John 3:17", "Psalm 23:1"})

	other := testArtifact("b1", "user-2")
	if err := s.InsertArtifact(ctx, other); err != nil {
		t.Fatalf("InsertArtifact error = %v", err)
	}

	got, err := s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("artifacts = %d, want 3", len(got))
	}
	if got[0].ID != "a3" {
		t.Errorf("newest first: got %s", got[0].ID)
	}

	got, err = s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1", Types: []vocab.ArtifactType{vocab.ArtifactPrayer}})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "a2" {
		t.Errorf("type filter got %v", ids(got))
	}

	got, err = s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1", ScriptureRef: "John 3"})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("scripture filter got %v", ids(got))
	}

	got, err = s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1", Since: baseTime.Add(30 * time.Minute), OldestFirst: true})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "a2" {
		t.Errorf("since filter got %v", ids(got))
	}

	got, err = s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1", Limit: 1})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("limit got %v", ids(got))
	}
}

func TestListArtifactsScriptureRefBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(id string, refs []string) {
		a := testArtifact(id, "user-1")
		a.ScriptureRefs = refs
		if err := s.InsertArtifact(ctx, a); err != nil {
			t.Fatalf("InsertArtifact(%s) error = %v", id, err)
		}
	}
	mk("ps2", []string{"Psalm 2:11"})
	mk("ps23", []string{"Psalm 23:1"})
	mk("range", []string{"Psalm 2:1-6"})

	got, err := s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1", ScriptureRef: "Psalm 2"})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("chapter filter got %v, want ps2 and range", ids(got))
	}
	for _, a := range got {
		if a.ID == "ps23" {
			t.Fatal("Psalm 2 filter matched Psalm 23")
		}
	}

	got, err = s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1", ScriptureRef: "Psalm 2:1"})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "range" {
		t.Errorf("verse filter got %v, want only the range", ids(got))
	}
}

func TestListArtifactsExcludesDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertArtifact(ctx, testArtifact("a1", "user-1")); err != nil {
		t.Fatalf("InsertArtifact error = %v", err)
	}
	if err := s.InsertArtifact(ctx, testArtifact("a2", "user-1")); err != nil {
		t.Fatalf("InsertArtifact error = %v", err)
	}
	if err := s.SoftDeleteArtifact(ctx, "a1", baseTime); err != nil {
		t.Fatalf("SoftDeleteArtifact error = %v", err)
	}

	got, err := s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "a2" {
		t.Errorf("active artifacts = %v, want [a2]", ids(got))
	}

	all, err := s.ListArtifacts(ctx, ArtifactFilter{UserID: "user-1", IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListArtifacts error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all artifacts = %d, want 2", len(all))
	}
}

func TestGetArtifactsByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertArtifact(ctx, testArtifact("a1", "user-1")); err != nil {
		t.Fatalf("InsertArtifact error = %v", err)
	}

	got, err := s.GetArtifactsByIDs(ctx, []string{"a1", "missing"})
	if err != nil {
		t.Fatalf("GetArtifactsByIDs error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("fetched = %d, want 1", len(got))
	}
	if got["a1"] == nil {
		t.Error("a1 missing from result")
	}

	empty, err := s.GetArtifactsByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("GetArtifactsByIDs(nil) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty fetch = %d entries", len(empty))
	}
}

func TestArtifactEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	edge := types.ArtifactEdge{FromID: "a2", ToID: "a1", Relation: vocab.RelationFollowsUp, CreatedAt: baseTime}
	if err := s.InsertEdge(ctx, edge); err != nil {
		t.Fatalf("InsertEdge error = %v", err)
	}
	// Duplicate insert is a no-op.
	if err := s.InsertEdge(ctx, edge); err != nil {
		t.Fatalf("InsertEdge(duplicate) error = %v", err)
	}

	from, err := s.EdgesFrom(ctx, "a2")
	if err != nil {
		t.Fatalf("EdgesFrom error = %v", err)
	}
	if len(from) != 1 || from[0].ToID != "a1" {
		t.Errorf("EdgesFrom = %+v", from)
	}

	to, err := s.EdgesTo(ctx, "a1")
	if err != nil {
		t.Fatalf("EdgesTo error = %v", err)
	}
	if len(to) != 1 || to[0].FromID != "a2" {
		t.Errorf("EdgesTo = %+v", to)
	}
}

func ids(artifacts []*types.Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.ID
	}
	return out
}
