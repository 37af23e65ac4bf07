package domain

import "time"

// DiagramKind identifies the visual layout of a diagram.
type DiagramKind string

const (
	KindFlowchart DiagramKind = "flowchart"
	KindMindmap   DiagramKind = "mindmap"
	KindSequence  DiagramKind = "sequence"
	KindClass     DiagramKind = "class"
	KindGantt     DiagramKind = "gantt"
	KindPie       DiagramKind = "pie"
	KindBar       DiagramKind = "bar"
	KindLine      DiagramKind = "line"
	KindNetwork   DiagramKind = "network"
	KindScatter   DiagramKind = "scatter"
)

// KindAll is the wildcard used by history filtering, not a real kind.
const KindAll DiagramKind = "all"

// Kinds lists all supported diagram kinds in a stable order.
func Kinds() []DiagramKind {
	return []DiagramKind{
		KindFlowchart, KindMindmap, KindSequence, KindClass, KindGantt,
		KindPie, KindBar, KindLine, KindNetwork, KindScatter,
	}
}

// KnownKind reports whether k is one of the supported kinds.
// Unknown kinds are still accepted downstream and degrade to generic
// template/fallback handling.
func KnownKind(k DiagramKind) bool {
	switch k {
	case KindFlowchart, KindMindmap, KindSequence, KindClass, KindGantt,
		KindPie, KindBar, KindLine, KindNetwork, KindScatter:
		return true
	}
	return false
}

// Diagram is the persisted unit of work: one generated diagram owned by one
// user. Created exactly once by the generation pipeline, removed only by
// explicit delete. No partial-field update exists.
type Diagram struct {
	ID              string      `json:"id"`
	OwnerID         string      `json:"ownerId"`
	Title           string      `json:"title"`
	Kind            DiagramKind `json:"kind"`
	OriginText      string      `json:"originText"`
	Description     string      `json:"description"`
	SourceKey       string      `json:"-"`
	SourceFilename  string      `json:"sourceFilename,omitempty"`
	DatasetSnapshot []DataPoint `json:"datasetSnapshot,omitempty"`
	Excerpt         string      `json:"excerpt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// DataPoint is one reduced dataset row used by chart generation.
type DataPoint struct {
	X     string  `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
