package document

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// PDFWriter lays pages out on A4 the way the printed backups always looked:
// 8 cm codes, the caption just above each code and the page number at the
// bottom centre.
type PDFWriter struct{}

func (p *PDFWriter) Write(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "cm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("backupill", false)
	pdf.SetFont("Helvetica", "", 11)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range doc.Pages {
		pdf.AddPage()
		for i, pl := range page.Placements {
			name := fmt.Sprintf("code-%d-%d", page.Number, i)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pl.Image))
			pdf.ImageOptions(name, pl.Position.X, topY(pl.Position.Y, CodeSize), CodeSize, CodeSize, false, opts, 0, "")
			pdf.Text(pl.Position.X+CaptionOffsetX, topY(pl.Position.Y+CaptionOffsetY, 0), tr(pl.Caption))
		}
		pdf.Text(FooterX, topY(FooterY, 0), page.Footer)
		if pdf.Err() {
			return fmt.Errorf("render page %d: %w", page.Number+1, pdf.Error())
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
