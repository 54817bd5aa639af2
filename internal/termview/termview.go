// Package termview prints a laid-out diagram as a terminal table.
package termview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/execution"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	unsavedStyle = cellStyle.Foreground(lipgloss.Color("214"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241"))
)

var statusStyles = map[string]lipgloss.Style{
	execution.ColorGreen: cellStyle.Foreground(lipgloss.Color(execution.ColorGreen)),
	execution.ColorBlue:  cellStyle.Foreground(lipgloss.Color(execution.ColorBlue)),
	execution.ColorRed:   cellStyle.Foreground(lipgloss.Color(execution.ColorRed)),
}

// Options selects what Render prints.
type Options struct {
	Title string
	// Edges adds a second table listing every edge.
	Edges bool
	// Hidden includes hidden nodes and edges.
	Hidden bool
}

// Render writes the nodes of m, in layout order, as a table to w.
func Render(w io.Writer, m *diagram.Model, opts Options) error {
	var b strings.Builder
	if opts.Title != "" {
		b.WriteString(titleStyle.Render(opts.Title))
		b.WriteString("\n")
	}
	b.WriteString(nodeTable(m, opts.Hidden).Render())
	b.WriteString("\n")
	if opts.Edges {
		b.WriteString(edgeTable(m, opts.Hidden).Render())
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func nodeTable(m *diagram.Model, hidden bool) *table.Table {
	var rows [][]string
	var unsaved []bool
	var colors []string
	for _, n := range m.Nodes() {
		if n.Hidden && !hidden {
			continue
		}
		layer := n.Layer
		if layer == diagram.RootLayer {
			layer = "-"
		}
		rows = append(rows, []string{
			n.ID,
			n.Kind.String(),
			label(n),
			layer,
			fmt.Sprintf("%g,%g", n.Position.X, n.Position.Y),
			fmt.Sprintf("%gx%g", n.Width, n.Height),
			flags(n),
		})
		unsaved = append(unsaved, n.Unsaved)
		colors = append(colors, n.Status.EdgeColor())
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "KIND", "NAME", "LAYER", "POSITION", "SIZE", "FLAGS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row < 0 || row >= len(rows):
				return cellStyle
			case col == 0 && unsaved[row]:
				return unsavedStyle
			case col == 1:
				if s, ok := statusStyles[colors[row]]; ok {
					return s
				}
			}
			return cellStyle
		})
}

func edgeTable(m *diagram.Model, hidden bool) *table.Table {
	var rows [][]string
	for _, e := range m.Edges() {
		if e.Hidden && !hidden {
			continue
		}
		var f []string
		if e.Dimmed {
			f = append(f, "dimmed")
		}
		if e.Hidden {
			f = append(f, "hidden")
		}
		if e.AllowAdd {
			f = append(f, "droppable")
		}
		rows = append(rows, []string{e.From, e.To, e.Color, strings.Join(f, " ")})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FROM", "TO", "COLOR", "FLAGS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func label(n *diagram.Node) string {
	if n.Badge == "" {
		return n.Name
	}
	if n.Name == "" {
		return n.Badge
	}
	return n.Name + " " + n.Badge
}

func flags(n *diagram.Node) string {
	var f []string
	if n.Selected {
		f = append(f, "selected")
	}
	if n.Unsaved {
		f = append(f, "unsaved")
	}
	if n.Collapsed {
		f = append(f, "collapsed")
	}
	if n.Rollback {
		f = append(f, "rollback")
	}
	if n.Hidden {
		f = append(f, "hidden")
	}
	return strings.Join(f, " ")
}
