package htmlutil

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("crazycar.pkg.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// CleanText turns non-breaking spaces into regular spaces and trims the result.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// Cells returns the cleaned text of every child of `row` matching `cellSelector`.
func Cells(row *goquery.Selection, cellSelector string) []string {
	cells := row.Find(cellSelector)
	out := make([]string, 0, cells.Length())
	for _, n := range cells.Nodes {
		out = append(out, CleanText(GetText(n)))
	}
	return out
}

// TableRows returns the cells of every row in `rows`, rows without any cell are kept
// as empty slices so indices line up with the source document.
func TableRows(ctx context.Context, rows *goquery.Selection, cellSelector string) [][]string {
	_, span := tracer.Start(ctx, "TableRows")
	defer span.End()

	out := make([][]string, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		out = append(out, Cells(row, cellSelector))
	})
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out
}

// FindAnchor returns the href of the first anchor under `sel` whose cleaned text
// equals `text`.
func FindAnchor(sel *goquery.Selection, text string) (string, bool) {
	var href string
	var found bool
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if CleanText(a.Text()) != text {
			return true
		}
		href, found = a.Attr("href")
		return !found
	})
	return href, found
}
