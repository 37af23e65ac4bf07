package diagram

import (
	"fmt"
	"strings"

	"diagramai/pkg/domain"
)

// kindFallbacks maps each kind to a deterministic skeleton builder used when
// the completion service fails. Skeletons must be syntactically valid Mermaid
// so the user always receives a renderable artifact.
var kindFallbacks = map[domain.DiagramKind]func(topic string) string{
	domain.KindFlowchart: func(topic string) string {
		return fmt.Sprintf("flowchart TD\n    A[%s] --> B[Step 1]\n"+
			"    B --> C[Step 2]\n    C --> D[Done]", topic)
	},
	domain.KindMindmap: func(topic string) string {
		return fmt.Sprintf("mindmap\n  root((%s))\n    Overview\n"+
			"    Details\n    Summary", topic)
	},
	domain.KindSequence: func(topic string) string {
		return fmt.Sprintf("sequenceDiagram\n    participant U as User\n"+
			"    participant S as System\n    U->>S: %s\n    S-->>U: Result", topic)
	},
	domain.KindClass: func(topic string) string {
		return fmt.Sprintf("classDiagram\n    class Main {\n      +%s\n    }\n"+
			"    class Detail\n    Main --> Detail", sanitizeNodeText(topic))
	},
	domain.KindGantt: func(topic string) string {
		return fmt.Sprintf("gantt\n    title %s\n    dateFormat YYYY-MM-DD\n"+
			"    section Plan\n    Start :a1, 2024-01-01, 7d\n"+
			"    Finish :after a1, 7d", topic)
	},
	domain.KindPie: func(topic string) string {
		return fmt.Sprintf("pie title %s\n    \"Part A\" : 60\n    \"Part B\" : 40", topic)
	},
	domain.KindBar: func(topic string) string {
		return fmt.Sprintf("xychart-beta\n    title \"%s\"\n"+
			"    x-axis [a, b, c]\n    y-axis \"Value\" 0 --> 10\n    bar [3, 7, 5]", topic)
	},
	domain.KindLine: func(topic string) string {
		return fmt.Sprintf("xychart-beta\n    title \"%s\"\n"+
			"    x-axis [a, b, c]\n    y-axis \"Value\" 0 --> 10\n    line [3, 7, 5]", topic)
	},
	domain.KindNetwork: func(topic string) string {
		return fmt.Sprintf("flowchart LR\n    A((%s)) --- B((Node))\n"+
			"    B --- C((Node))\n    A --- C", topic)
	},
	domain.KindScatter: func(topic string) string {
		return fmt.Sprintf("quadrantChart\n    title %s\n"+
			"    x-axis Low --> High\n    y-axis Low --> High\n"+
			"    A: [0.3, 0.6]\n    B: [0.7, 0.4]", topic)
	},
}

// Fallback synthesizes a minimal valid diagram description for kind from the
// origin text. Unknown kinds degrade to the flowchart skeleton.
func Fallback(kind domain.DiagramKind, origin string) string {
	topic := fallbackTopic(origin)
	build, ok := kindFallbacks[kind]
	if !ok {
		build = kindFallbacks[domain.KindFlowchart]
	}
	return build(topic)
}

// FallbackDataset synthesizes a chart skeleton directly from reduced points.
func FallbackDataset(kind domain.DiagramKind, title string, points []domain.DataPoint) string {
	if len(points) == 0 {
		return Fallback(kind, title)
	}
	switch kind {
	case domain.KindPie:
		var b strings.Builder
		fmt.Fprintf(&b, "pie title %s\n", fallbackTopic(title))
		for _, p := range points {
			fmt.Fprintf(&b, "    %q : %g\n", sanitizeNodeText(p.X), p.Y)
		}
		return strings.TrimRight(b.String(), "\n")
	case domain.KindBar, domain.KindLine:
		series := "bar"
		if kind == domain.KindLine {
			series = "line"
		}
		xs := make([]string, 0, len(points))
		ys := make([]string, 0, len(points))
		var max float64
		for _, p := range points {
			xs = append(xs, sanitizeNodeText(p.X))
			ys = append(ys, fmt.Sprintf("%g", p.Y))
			if p.Y > max {
				max = p.Y
			}
		}
		if max <= 0 {
			max = 1
		}
		return fmt.Sprintf("xychart-beta\n    title \"%s\"\n    x-axis [%s]\n"+
			"    y-axis \"Value\" 0 --> %g\n    %s [%s]",
			fallbackTopic(title), strings.Join(xs, ", "), max, series, strings.Join(ys, ", "))
	default:
		return Fallback(kind, title)
	}
}

// fallbackTopic bounds and flattens origin text for embedding in a skeleton.
func fallbackTopic(origin string) string {
	topic := sanitizeNodeText(origin)
	if topic == "" {
		topic = "Diagram"
	}
	return truncate(topic, 48)
}

// sanitizeNodeText strips characters that break Mermaid node labels.
func sanitizeNodeText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	replacer := strings.NewReplacer(
		"[", "(", "]", ")", "{", "(", "}", ")", `"`, "'", "`", "'", "|", "/",
	)
	return strings.TrimSpace(replacer.Replace(s))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
