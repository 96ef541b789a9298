package docs

import (
	"strings"

	gdocs "google.golang.org/api/docs/v1"
)

// DocumentText concatenates the text runs of a document body, including
// the text inside table cells, in document order.
func DocumentText(doc *gdocs.Document) string {
	if doc == nil || doc.Body == nil {
		return ""
	}

	var b strings.Builder
	writeElements(&b, doc.Body.Content)
	return b.String()
}

func writeElements(b *strings.Builder, elements []*gdocs.StructuralElement) {
	for _, element := range elements {
		switch {
		case element == nil:
		case element.Paragraph != nil:
			for _, pe := range element.Paragraph.Elements {
				if pe != nil && pe.TextRun != nil {
					b.WriteString(pe.TextRun.Content)
				}
			}
		case element.Table != nil:
			for _, row := range element.Table.TableRows {
				if row == nil {
					continue
				}
				for _, cell := range row.TableCells {
					if cell != nil {
						writeElements(b, cell.Content)
					}
				}
			}
		}
	}
}
