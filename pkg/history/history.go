// Package history maintains one user's loaded diagram records and a derived,
// filtered view with a single selection for preview.
package history

import (
	"context"
	"strings"

	"diagramai/pkg/domain"
	"diagramai/pkg/store"
)

// MaxRecords bounds how many records one load fetches.
const MaxRecords = 50

// History holds the loaded record set for one owner. Filtering is always
// recomputed from the full loaded set and never mutates it.
type History struct {
	store   store.Store
	ownerID string

	loaded   []domain.Diagram
	search   string
	kind     domain.DiagramKind
	selected string
}

// New builds an empty history for the owner.
func New(s store.Store, ownerID string) *History {
	return &History{store: s, ownerID: ownerID, kind: domain.KindAll}
}

// Load fetches the owner's records newest-first, bounded to MaxRecords.
// On failure the previously loaded set is kept and the error is returned for
// a non-fatal notice.
func (h *History) Load(ctx context.Context) error {
	records, err := h.store.ListDiagramsByOwner(ctx, h.ownerID, MaxRecords)
	if err != nil {
		return err
	}
	h.loaded = records
	if h.selected != "" && !h.contains(h.selected) {
		h.selected = ""
	}
	return nil
}

// SetSearch sets the free-text filter term.
func (h *History) SetSearch(term string) {
	h.search = strings.TrimSpace(term)
}

// SetKind sets the kind filter. domain.KindAll (or empty) matches everything.
func (h *History) SetKind(kind domain.DiagramKind) {
	if kind == "" {
		kind = domain.KindAll
	}
	h.kind = kind
}

// Visible returns the records whose title or origin text contains the search
// term (case-insensitive) and whose kind matches the selector.
func (h *History) Visible() []domain.Diagram {
	return Filter(h.loaded, h.search, h.kind)
}

// Filter applies the history filter rules to any record list.
func Filter(records []domain.Diagram, search string, kind domain.DiagramKind) []domain.Diagram {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Diagram, 0, len(records))
	for _, d := range records {
		if kind != "" && kind != domain.KindAll && d.Kind != kind {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(d.Title), term) &&
			!strings.Contains(strings.ToLower(d.OriginText), term) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Select designates the currently previewed record. Selecting an id that is
// not loaded is a no-op and reports false.
func (h *History) Select(id string) bool {
	if !h.contains(id) {
		return false
	}
	h.selected = id
	return true
}

// Selected returns the currently previewed record, if any.
func (h *History) Selected() (domain.Diagram, bool) {
	for _, d := range h.loaded {
		if d.ID == h.selected {
			return d, true
		}
	}
	return domain.Diagram{}, false
}

// Delete removes the record from the store, then from the loaded set, and
// clears the selection if it pointed at the deleted record. The caller is
// responsible for confirming the destructive action first.
func (h *History) Delete(ctx context.Context, id string) error {
	if err := h.store.DeleteDiagram(ctx, h.ownerID, id); err != nil {
		return err
	}
	kept := h.loaded[:0]
	for _, d := range h.loaded {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	h.loaded = kept
	if h.selected == id {
		h.selected = ""
	}
	return nil
}

// Loaded reports how many records are currently held.
func (h *History) Loaded() int {
	return len(h.loaded)
}

func (h *History) contains(id string) bool {
	for _, d := range h.loaded {
		if d.ID == id {
			return true
		}
	}
	return false
}
