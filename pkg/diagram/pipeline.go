package diagram

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"diagramai/internal/util"
	"diagramai/pkg/ai"
	"diagramai/pkg/domain"
)

const (
	maxTitleLen = 60

	// minDocumentText rejects documents whose extraction likely failed
	// (e.g. scanned-image PDFs).
	minDocumentText = 100
	// maxDocumentText bounds the text embedded in the instruction.
	maxDocumentText = 4000
	// maxExcerptLen bounds the stored preview excerpt.
	maxExcerptLen = 600
)

// Pipeline turns a user request into a Diagram record. It never fails
// because of the completion service: on generation errors it synthesizes a
// deterministic skeleton instead. Only validation errors are returned.
// Persistence is the caller's responsibility.
type Pipeline struct {
	generator ai.TextGenerator
}

// NewPipeline builds a pipeline over the given text generator.
func NewPipeline(generator ai.TextGenerator) *Pipeline {
	return &Pipeline{generator: generator}
}

// FromPrompt generates a diagram of the requested kind from free-form text.
func (p *Pipeline) FromPrompt(ctx context.Context, ownerID, prompt string, kind domain.DiagramKind) (domain.Diagram, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Diagram{}, ErrPromptRequired
	}
	if strings.TrimSpace(string(kind)) == "" {
		return domain.Diagram{}, ErrKindRequired
	}
	description := p.generate(ctx, kind, Instruction(kind, prompt), func() string {
		return Fallback(kind, prompt)
	})
	return p.newDiagram(ownerID, truncate(prompt, maxTitleLen), kind, prompt, description), nil
}

// FromDataset generates a chart from tabular rows. Rows with non-numeric Y
// values are dropped before the instruction is built; the reduced sample is
// kept on the record as a snapshot.
func (p *Pipeline) FromDataset(ctx context.Context, ownerID string, req DatasetRequest) (domain.Diagram, error) {
	if strings.TrimSpace(string(req.Kind)) == "" {
		return domain.Diagram{}, ErrKindRequired
	}
	points, err := Reduce(req)
	if err != nil {
		return domain.Diagram{}, err
	}
	origin := strings.TrimSpace(req.Description)
	if origin == "" {
		origin = fmt.Sprintf("Chart of %s by %s", req.YColumn, req.XColumn)
	}
	instruction := DatasetInstruction(req.Kind, origin, req.XColumn, req.YColumn, points)
	description := p.generate(ctx, req.Kind, instruction, func() string {
		return FallbackDataset(req.Kind, origin, points)
	})
	d := p.newDiagram(ownerID, truncate(origin, maxTitleLen), req.Kind, origin, description)
	d.DatasetSnapshot = points
	return d, nil
}

// FromDocument generates a mind map from already-extracted document text.
// Extraction itself is the extract package's concern; this step only enforces
// the minimum-length contract and bounds the embedded text.
func (p *Pipeline) FromDocument(ctx context.Context, ownerID, filename, text string) (domain.Diagram, error) {
	text = strings.TrimSpace(text)
	if len(text) < minDocumentText {
		return domain.Diagram{}, ErrInsufficientText
	}
	bounded := truncate(text, maxDocumentText)
	name := filepath.Base(filename)
	origin := fmt.Sprintf("Mind map of %s", name)
	description := p.generate(ctx, domain.KindMindmap, DocumentInstruction(name, bounded), func() string {
		return Fallback(domain.KindMindmap, strings.TrimSuffix(name, filepath.Ext(name)))
	})
	d := p.newDiagram(ownerID, truncate(name, maxTitleLen), domain.KindMindmap, origin, description)
	d.SourceFilename = name
	d.Excerpt = truncate(text, maxExcerptLen)
	return d, nil
}

// generate calls the completion service and falls back to synthesis on any
// error or blank response. The result is sanitized unconditionally.
func (p *Pipeline) generate(ctx context.Context, kind domain.DiagramKind, instruction string, fallback func() string) string {
	raw, err := p.generator.GenerateText(ctx, systemInstruction, instruction)
	if err != nil {
		slog.Warn("generation failed, synthesizing fallback", "kind", kind, "err", err)
		raw = fallback()
	}
	description := Sanitize(raw)
	if description == "" {
		description = Sanitize(fallback())
	}
	return description
}

func (p *Pipeline) newDiagram(ownerID, title string, kind domain.DiagramKind, origin, description string) domain.Diagram {
	return domain.Diagram{
		ID:          "dg_" + util.NewID(),
		OwnerID:     ownerID,
		Title:       title,
		Kind:        kind,
		OriginText:  origin,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}
