package document

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// VerifyDOCXFile reads a generated Word document back. A page ends at its
// "Page n" footer paragraph.
func VerifyDOCXFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return VerifyDOCX(f, info.Size())
}

// VerifyDOCX is VerifyDOCXFile over an in-memory or already open document.
func VerifyDOCX(r io.ReaderAt, size int64) (*Report, error) {
	doc, err := docx.Parse(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newReportBuilder()
	var page strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		page.WriteString(text)
		page.WriteByte('\n')
		if footerLineRe.MatchString(text) {
			b.rep.Pages++
			b.scan(page.String())
			page.Reset()
		}
	}
	if strings.TrimSpace(page.String()) != "" {
		b.rep.Pages++
		b.scan(page.String())
	}
	return b.finish(), nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
