package render

import (
	"context"
	"fmt"
	"html"
	"sync"

	"diagramai/pkg/domain"
)

// State describes where the adapter is in its render cycle.
type State string

const (
	StateIdle           State = "idle"
	StateRendering      State = "rendering"
	StateRendered       State = "rendered"
	StateFallbackRender State = "fallback-rendered"
	StateErrorDisplayed State = "error-displayed"
)

// Zoom bounds and step.
const (
	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 0.2
)

// fallbackDescription is the fixed built-in diagram shown when the primary
// render fails. It must itself always render.
const fallbackDescription = "flowchart TD\n" +
	"    A[Rendering failed] --> B[Showing fallback diagram]\n" +
	"    B --> C[Check the diagram source below]"

// Result is one displayable outcome of a render attempt.
type Result struct {
	State        State
	Artifact     []byte
	ContentType  string
	Zoom         float64
	FailedSource string
	Message      string
}

// Adapter converts descriptions into displayable artifacts without ever
// surfacing a failure to its caller. A failed primary render falls back to a
// fixed diagram; a failed fallback degrades to preformatted text. Stale
// in-flight renders are discarded in favor of the most recent request
// (last-writer-wins, guarded by a request sequence number).
type Adapter struct {
	renderer Renderer

	mu      sync.Mutex
	seq     uint64
	current Result
}

// NewAdapter builds an adapter over the external renderer.
func NewAdapter(renderer Renderer) *Adapter {
	return &Adapter{
		renderer: renderer,
		current:  Result{State: StateIdle, Zoom: 1.0},
	}
}

// Show renders the description and installs the outcome. It never returns an
// error; the returned Result is always displayable. A Show superseded by a
// newer Show leaves the newer outcome in place and reports it.
func (a *Adapter) Show(ctx context.Context, kind domain.DiagramKind, description string) Result {
	seq := a.begin()

	artifact, err := a.renderer.Render(ctx, kind, description)
	if err == nil {
		return a.install(seq, Result{
			State:       StateRendered,
			Artifact:    artifact,
			ContentType: "image/svg+xml",
		})
	}

	// Primary failed: render the built-in fallback and keep the failing
	// source for inspection.
	fallback, fbErr := a.renderer.Render(ctx, domain.KindFlowchart, fallbackDescription)
	if fbErr == nil {
		return a.install(seq, Result{
			State:        StateFallbackRender,
			Artifact:     fallback,
			ContentType:  "image/svg+xml",
			FailedSource: description,
			Message:      fmt.Sprintf("diagram could not be rendered: %v", err),
		})
	}

	// Even the fallback failed: show the raw description as preformatted
	// text. This path is unconditionally reachable.
	return a.install(seq, Result{
		State:        StateErrorDisplayed,
		Artifact:     []byte("<pre>" + html.EscapeString(description) + "</pre>"),
		ContentType:  "text/html",
		FailedSource: description,
		Message:      "diagram could not be rendered; showing source",
	})
}

// begin clears the result container and claims the next sequence number.
func (a *Adapter) begin() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	zoom := a.current.Zoom
	a.current = Result{State: StateRendering, Zoom: zoom}
	return a.seq
}

// install applies a completed render only if its sequence number is still
// the latest issued; stale results are discarded.
func (a *Adapter) install(seq uint64, r Result) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.seq {
		return a.current
	}
	r.Zoom = a.current.Zoom
	a.current = r
	return r
}

// Current returns the last installed result.
func (a *Adapter) Current() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// ZoomIn increases the scale factor by one step, clamped to MaxZoom, and
// re-applies it to the existing artifact.
func (a *Adapter) ZoomIn() Result {
	return a.setZoom(func(z float64) float64 { return z + ZoomStep })
}

// ZoomOut decreases the scale factor by one step, clamped to MinZoom.
func (a *Adapter) ZoomOut() Result {
	return a.setZoom(func(z float64) float64 { return z - ZoomStep })
}

// ResetZoom returns the scale factor to 1.0.
func (a *Adapter) ResetZoom() Result {
	return a.setZoom(func(float64) float64 { return 1.0 })
}

func (a *Adapter) setZoom(apply func(float64) float64) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current.Zoom = clampZoom(apply(a.current.Zoom))
	return a.current
}

func clampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
