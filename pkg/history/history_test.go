package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"diagramai/pkg/domain"
	"diagramai/pkg/store"
)

// flakyStore fails list calls on demand to exercise reload-failure handling.
type flakyStore struct {
	store.Store
	failList bool
}

func (f *flakyStore) ListDiagramsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Diagram, error) {
	if f.failList {
		return nil, errors.New("connection reset")
	}
	return f.Store.ListDiagramsByOwner(ctx, ownerID, limit)
}

func seedStore(t *testing.T, records ...domain.Diagram) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	for _, d := range records {
		if err := s.SaveDiagram(context.Background(), d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return s
}

func record(id, owner, title string, kind domain.DiagramKind, age time.Duration) domain.Diagram {
	return domain.Diagram{
		ID:         id,
		OwnerID:    owner,
		Title:      title,
		Kind:       kind,
		OriginText: title,
		CreatedAt:  time.Now().UTC().Add(-age),
	}
}

func TestLoadNewestFirst(t *testing.T) {
	s := seedStore(t,
		record("dg_old", "u1", "Older", domain.KindFlowchart, 2*time.Hour),
		record("dg_new", "u1", "Newer", domain.KindMindmap, time.Minute),
		record("dg_other", "u2", "Not mine", domain.KindPie, time.Minute),
	)
	h := New(s, "u1")
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	visible := h.Visible()
	if len(visible) != 2 {
		t.Fatalf("expected 2 records, got %d", len(visible))
	}
	if visible[0].ID != "dg_new" || visible[1].ID != "dg_old" {
		t.Fatalf("expected newest-first order, got %s, %s", visible[0].ID, visible[1].ID)
	}
}

func TestFilterOrderIndependent(t *testing.T) {
	records := []domain.Diagram{
		record("a", "u1", "Water cycle", domain.KindFlowchart, 0),
		record("b", "u1", "Water usage", domain.KindPie, 0),
		record("c", "u1", "Org chart", domain.KindFlowchart, 0),
	}
	s := seedStore(t, records...)

	h1 := New(s, "u1")
	if err := h1.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	h1.SetSearch("water")
	h1.SetKind(domain.KindFlowchart)

	h2 := New(s, "u1")
	if err := h2.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	h2.SetKind(domain.KindFlowchart)
	h2.SetSearch("water")

	v1, v2 := h1.Visible(), h2.Visible()
	if len(v1) != 1 || len(v2) != 1 || v1[0].ID != v2[0].ID {
		t.Fatalf("filter application order must not matter: %v vs %v", v1, v2)
	}
	if v1[0].ID != "a" {
		t.Fatalf("expected record a, got %s", v1[0].ID)
	}
}

func TestFilterCaseInsensitiveAndKindAll(t *testing.T) {
	records := []domain.Diagram{
		record("a", "u1", "Supply Chain", domain.KindFlowchart, 0),
		record("b", "u1", "supply forecast", domain.KindLine, 0),
	}
	got := Filter(records, "SUPPLY", domain.KindAll)
	if len(got) != 2 {
		t.Fatalf("case-insensitive match with kind-all should keep both, got %d", len(got))
	}
	if got := Filter(records, "", ""); len(got) != 2 {
		t.Fatalf("empty filters should keep everything, got %d", len(got))
	}
	if got := Filter(records, "forecast", domain.KindLine); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("combined filter mismatch: %v", got)
	}
}

func TestSelectRequiresLoadedRecord(t *testing.T) {
	s := seedStore(t, record("a", "u1", "One", domain.KindFlowchart, 0))
	h := New(s, "u1")
	if h.Select("a") {
		t.Fatalf("selecting before load must fail")
	}
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !h.Select("a") {
		t.Fatalf("selecting a loaded record should succeed")
	}
	if h.Select("dg_missing") {
		t.Fatalf("selecting an unknown id must fail")
	}
	if d, ok := h.Selected(); !ok || d.ID != "a" {
		t.Fatalf("selection should survive a failed select: %v %v", d, ok)
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	s := seedStore(t,
		record("a", "u1", "One", domain.KindFlowchart, 0),
		record("b", "u1", "Two", domain.KindFlowchart, time.Minute),
	)
	h := New(s, "u1")
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	h.Select("a")
	if err := h.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := h.Selected(); ok {
		t.Fatalf("selection must clear when its record is deleted")
	}
	if h.Loaded() != 1 {
		t.Fatalf("loaded = %d", h.Loaded())
	}
	if _, ok, err := s.GetDiagram(context.Background(), "a"); err != nil || ok {
		t.Fatalf("record should be gone from the store: ok=%v err=%v", ok, err)
	}
}

func TestDeleteKeepsUnrelatedSelection(t *testing.T) {
	s := seedStore(t,
		record("a", "u1", "One", domain.KindFlowchart, 0),
		record("b", "u1", "Two", domain.KindFlowchart, time.Minute),
	)
	h := New(s, "u1")
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	h.Select("b")
	if err := h.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if d, ok := h.Selected(); !ok || d.ID != "b" {
		t.Fatalf("unrelated selection must survive deletes: %v %v", d, ok)
	}
}

func TestDeleteUnknownKeepsState(t *testing.T) {
	s := seedStore(t, record("a", "u1", "One", domain.KindFlowchart, 0))
	h := New(s, "u1")
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	h.Select("a")
	if err := h.Delete(context.Background(), "dg_missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.Loaded() != 1 {
		t.Fatalf("failed delete must not shrink the loaded set")
	}
	if _, ok := h.Selected(); !ok {
		t.Fatalf("failed delete must not clear the selection")
	}
}

func TestLoadFailureKeepsPriorSet(t *testing.T) {
	flaky := &flakyStore{Store: seedStore(t, record("a", "u1", "One", domain.KindFlowchart, 0))}
	h := New(flaky, "u1")
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	flaky.failList = true
	if err := h.Load(context.Background()); err == nil {
		t.Fatalf("expected injected load failure")
	}
	if h.Loaded() != 1 {
		t.Fatalf("failed reload must keep the prior set, got %d", h.Loaded())
	}
}
