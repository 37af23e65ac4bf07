package render

import (
	"context"
	"errors"

	"diagramai/pkg/domain"
)

// ErrSyntax indicates the renderer rejected the diagram description.
// The adapter handles it internally; it is never surfaced as an
// application-level failure.
var ErrSyntax = errors.New("diagram syntax rejected")

// Renderer converts a diagram description into a displayable artifact.
// The kind selects renderer configuration only; it does not need to match
// the description's own syntax marker.
type Renderer interface {
	Render(ctx context.Context, kind domain.DiagramKind, description string) ([]byte, error)
}
