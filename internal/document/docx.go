package document

import (
	"fmt"
	"io"

	"github.com/fumiama/go-docx"
)

// DOCXWriter produces an editable Word document: each code is a centred
// inline picture preceded by its caption, one backup page per document page.
type DOCXWriter struct{}

func (d *DOCXWriter) Write(w io.Writer, doc Document) error {
	out := docx.New().WithDefaultTheme()

	if doc.Title != "" {
		out.AddParagraph().Justification("center").AddText(doc.Title).Bold()
	}
	for i, page := range doc.Pages {
		if i > 0 {
			out.AddParagraph().AddPageBreaks()
		}
		for _, pl := range page.Placements {
			out.AddParagraph().Justification("center").AddText(pl.Caption)
			para := out.AddParagraph().Justification("center")
			if _, err := para.AddInlineDrawing(pl.Image); err != nil {
				return fmt.Errorf("page %d: add %s: %w", page.Number+1, pl.Caption, err)
			}
		}
		out.AddParagraph().Justification("center").AddText(page.Footer)
	}

	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
