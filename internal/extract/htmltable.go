package extract

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
)

const htmlBaseConfidence = 0.9

// HTMLTable extracts rows from markup documents. When the document holds
// several tables the one that looks most like a roster wins.
type HTMLTable struct{}

func NewHTMLTable() *HTMLTable {
	return &HTMLTable{}
}

func (s *HTMLTable) Name() string {
	return "html-table"
}

func (s *HTMLTable) TryExtract(ctx context.Context, doc Document) ([]roster.Record, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	root, err := html.Parse(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, 0, errs.Wrap(err, "parse html")
	}

	grid := selectBestTable(collectTables(root))
	if grid == nil {
		return nil, 0, nil
	}

	records := recordsFromTable(grid, htmlBaseConfidence, roster.MethodRule)
	return records, roster.AggregateConfidence(records), nil
}

func (s *HTMLTable) RenderText(doc Document) (string, error) {
	root, err := html.Parse(bytes.NewReader(doc.Data))
	if err != nil {
		return "", errs.Wrap(err, "parse html")
	}
	var b strings.Builder
	renderNodeText(root, &b)
	return b.String(), nil
}

func collectTables(root *html.Node) [][][]string {
	var tables [][][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "style", "script":
				return
			case "table":
				if grid := tableGrid(n); len(grid) > 0 {
					tables = append(tables, grid)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return tables
}

func tableGrid(table *html.Node) [][]string {
	var grid [][]string
	var walkRows func(n *html.Node)
	walkRows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					var b strings.Builder
					renderNodeText(c, &b)
					cells = append(cells, strings.TrimSpace(b.String()))
				}
			}
			if len(cells) > 0 {
				grid = append(grid, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkRows(c)
		}
	}
	walkRows(table)
	return grid
}

func renderNodeText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
		return
	}
	if n.Type == html.ElementNode && (n.Data == "style" || n.Data == "script") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNodeText(c, b)
	}
}

// selectBestTable scores candidates by size and roster vocabulary. Mirrors
// how a reviewer would pick the one real table out of layout scaffolding.
func selectBestTable(tables [][][]string) [][]string {
	var best [][]string
	bestScore := 0

	for _, grid := range tables {
		if len(grid) == 0 {
			continue
		}
		cols := len(grid[0])
		score := len(grid) * cols
		score += rosterTermMatches(gridText(grid)) * 5
		if len(grid) > 1 {
			score += 10
		}
		if cols >= 3 && cols <= 10 {
			score += 5
		}
		if score > bestScore {
			bestScore = score
			best = grid
		}
	}
	return best
}
