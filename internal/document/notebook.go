package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CellType is a Jupyter cell type.
type CellType string

// Supported cell types.
const (
	Markdown CellType = "markdown"
	Code     CellType = "code"
)

// Cell is a single notebook cell.
type Cell struct {
	Type   CellType
	Source string
}

// Notebook is a minimal nbformat 4 notebook.
type Notebook struct {
	Title string
	Cells []Cell
}

// AddMarkdown appends a Markdown cell.
func (n *Notebook) AddMarkdown(src string) {
	n.Cells = append(n.Cells, Cell{Type: Markdown, Source: src})
}

// AddCode appends a code cell.
func (n *Notebook) AddCode(src string) { n.Cells = append(n.Cells, Cell{Type: Code, Source: src}) }

// ipynb wire types. Code cells must carry a null execution_count and an
// outputs list; markdown cells must not.
type ipynbFile struct {
	Cells         []any          `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

type markdownCell struct {
	CellType CellType       `json:"cell_type"`
	Metadata map[string]any `json:"metadata"`
	Source   []string       `json:"source"`
}

type codeCell struct {
	CellType       CellType       `json:"cell_type"`
	ExecutionCount *int           `json:"execution_count"`
	Metadata       map[string]any `json:"metadata"`
	Outputs        []any          `json:"outputs"`
	Source         []string       `json:"source"`
}

// MarshalIPYNB encodes n as an nbformat 4.5 JSON document.
func (n *Notebook) MarshalIPYNB() ([]byte, error) {
	f := ipynbFile{
		Cells: make([]any, 0, len(n.Cells)),
		Metadata: map[string]any{
			"kernelspec": map[string]string{
				"display_name": "Python 3",
				"language":     "python",
				"name":         "python3",
			},
			"language_info": map[string]string{"name": "python"},
		},
		NBFormat:      4,
		NBFormatMinor: 5,
	}
	if n.Title != "" {
		f.Metadata["title"] = n.Title
	}
	for i, c := range n.Cells {
		switch c.Type {
		case Code:
			f.Cells = append(f.Cells, codeCell{
				CellType: Code,
				Metadata: map[string]any{},
				Outputs:  []any{},
				Source:   splitSource(c.Source),
			})
		case Markdown:
			f.Cells = append(f.Cells, markdownCell{
				CellType: Markdown,
				Metadata: map[string]any{},
				Source:   splitSource(c.Source),
			})
		default:
			return nil, fmt.Errorf("notebook: cell %d: unknown cell type %q", i, c.Type)
		}
	}
	data, err := json.MarshalIndent(f, "", " ")
	if err != nil {
		return nil, fmt.Errorf("notebook: marshal: %w", err)
	}
	return append(data, '\n'), nil
}

// splitSource splits src into lines keeping the trailing newline on each
// line except the last, as nbformat stores multi-line sources.
func splitSource(src string) []string {
	if src == "" {
		return []string{}
	}
	lines := strings.SplitAfter(src, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// FromMarkdown splits Markdown into notebook cells: fenced code blocks become
// code cells and the prose between them becomes markdown cells.
func FromMarkdown(title, md string) *Notebook {
	nb := &Notebook{Title: title}
	var prose, code strings.Builder
	inFence := false

	flushProse := func() {
		if s := strings.TrimSpace(prose.String()); s != "" {
			nb.AddMarkdown(s)
		}
		prose.Reset()
	}

	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inFence {
				nb.AddCode(strings.TrimRight(code.String(), "\n"))
				code.Reset()
			} else {
				flushProse()
			}
			inFence = !inFence
			continue
		}
		if inFence {
			code.WriteString(line)
			code.WriteByte('\n')
		} else {
			prose.WriteString(line)
			prose.WriteByte('\n')
		}
	}
	// An unterminated fence still yields its code.
	if inFence && code.Len() > 0 {
		nb.AddCode(strings.TrimRight(code.String(), "\n"))
	}
	flushProse()
	return nb
}
