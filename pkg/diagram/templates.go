package diagram

import (
	"fmt"
	"strings"

	"diagramai/pkg/domain"
)

// systemInstruction constrains every generation call to markup-only output.
const systemInstruction = "You generate Mermaid diagram markup. " +
	"Respond with diagram markup only: no prose, no explanation, no code fences."

// kindTemplates maps each diagram kind to an instruction template. Each
// template shows the model a concrete syntax example to imitate. %s receives
// the origin text. New kinds are added here and in kindFallbacks; nothing
// else branches on kind.
var kindTemplates = map[domain.DiagramKind]string{
	domain.KindFlowchart: "Create a Mermaid flowchart for: %s\n" +
		"Use this syntax:\nflowchart TD\n    A[Start] --> B{Decision}\n" +
		"    B -->|Yes| C[Do thing]\n    B -->|No| D[Stop]",
	domain.KindMindmap: "Create a Mermaid mind map for: %s\n" +
		"Use this syntax:\nmindmap\n  root((Topic))\n    Branch One\n" +
		"      Leaf\n    Branch Two",
	domain.KindSequence: "Create a Mermaid sequence diagram for: %s\n" +
		"Use this syntax:\nsequenceDiagram\n    Alice->>Bob: Request\n" +
		"    Bob-->>Alice: Response",
	domain.KindClass: "Create a Mermaid class diagram for: %s\n" +
		"Use this syntax:\nclassDiagram\n    class Animal {\n      +name string\n" +
		"      +speak()\n    }\n    Animal <|-- Dog",
	domain.KindGantt: "Create a Mermaid gantt chart for: %s\n" +
		"Use this syntax:\ngantt\n    title Plan\n    dateFormat YYYY-MM-DD\n" +
		"    section Phase\n    Task one :a1, 2024-01-01, 7d",
	domain.KindPie: "Create a Mermaid pie chart for: %s\n" +
		"Use this syntax:\npie title Share\n    \"A\" : 42\n    \"B\" : 58",
	domain.KindBar: "Create a Mermaid bar chart for: %s\n" +
		"Use this syntax:\nxychart-beta\n    title \"Values\"\n" +
		"    x-axis [a, b, c]\n    y-axis \"Count\" 0 --> 100\n    bar [10, 40, 30]",
	domain.KindLine: "Create a Mermaid line chart for: %s\n" +
		"Use this syntax:\nxychart-beta\n    title \"Trend\"\n" +
		"    x-axis [a, b, c]\n    y-axis \"Value\" 0 --> 100\n    line [10, 40, 30]",
	domain.KindNetwork: "Create a Mermaid network graph for: %s\n" +
		"Use this syntax:\nflowchart LR\n    A((Node A)) --- B((Node B))\n" +
		"    B --- C((Node C))\n    A --- C",
	domain.KindScatter: "Create a Mermaid scatter-style chart for: %s\n" +
		"Use this syntax:\nquadrantChart\n    title Spread\n" +
		"    x-axis Low --> High\n    y-axis Low --> High\n    Point A: [0.3, 0.6]",
}

// Instruction builds the generation instruction for a kind and origin text.
// Unrecognized kinds get a generic instruction that still names the kind.
func Instruction(kind domain.DiagramKind, origin string) string {
	tmpl, ok := kindTemplates[kind]
	if !ok {
		return fmt.Sprintf("Create a Mermaid %s diagram for: %s\n"+
			"Output valid Mermaid markup of the most suitable diagram type.",
			kind, origin)
	}
	return fmt.Sprintf(tmpl, origin)
}

// DatasetInstruction embeds a reduced data sample plus column names into the
// kind instruction.
func DatasetInstruction(kind domain.DiagramKind, description, xColumn, yColumn string, points []domain.DataPoint) string {
	var b strings.Builder
	b.WriteString(Instruction(kind, description))
	fmt.Fprintf(&b, "\nData (x=%s, y=%s):\n", xColumn, yColumn)
	for _, p := range points {
		if p.Label != "" {
			fmt.Fprintf(&b, "  %s=%g (%s)\n", p.X, p.Y, p.Label)
			continue
		}
		fmt.Fprintf(&b, "  %s=%g\n", p.X, p.Y)
	}
	b.WriteString("Use these exact values.")
	return b.String()
}

// DocumentInstruction asks for a mind map summarizing extracted document text.
func DocumentInstruction(name, text string) string {
	return Instruction(domain.KindMindmap,
		fmt.Sprintf("the key ideas of the document %q.\nDocument text:\n%s", name, text))
}
