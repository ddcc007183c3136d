package document

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/beucismis/backupill/internal/layout"
)

// Page geometry shared by every writer, in centimetres on A4 with the origin
// at the bottom-left corner.
const (
	PageWidth  = 21.0
	PageHeight = 29.7

	CodeSize       = 8.0
	CaptionOffsetX = 0.6
	CaptionOffsetY = 8.2
	FooterX        = 10.0
	FooterY        = 0.6
)

// Placement is one rendered code on a page.
type Placement struct {
	Position layout.Position
	Image    []byte // PNG
	Caption  string
}

// Page is a finished page ready to be written.
type Page struct {
	Number     int
	Footer     string
	Placements []Placement
}

// Document is the whole printable backup.
type Document struct {
	Title string
	Pages []Page
}

// Build pairs planned pages with their rendered images. images holds one PNG
// per slot, in slot order across all pages.
func Build(title string, pages []layout.Page, images [][]byte) (Document, error) {
	doc := Document{Title: title, Pages: make([]Page, 0, len(pages))}
	next := 0
	for _, p := range pages {
		page := Page{Number: p.Number, Footer: p.Footer, Placements: make([]Placement, 0, len(p.Slots))}
		for _, s := range p.Slots {
			if next >= len(images) {
				return Document{}, fmt.Errorf("missing image for chunk %d", s.Index)
			}
			page.Placements = append(page.Placements, Placement{
				Position: s.Position,
				Image:    images[next],
				Caption:  s.Caption,
			})
			next++
		}
		doc.Pages = append(doc.Pages, page)
	}
	if next != len(images) {
		return Document{}, fmt.Errorf("%d images for %d slots", len(images), next)
	}
	return doc, nil
}

// Writer serializes a Document into one paginated artifact.
type Writer interface {
	Write(w io.Writer, doc Document) error
}

// SupportedFormats lists the output formats by file extension.
var SupportedFormats = map[string]bool{
	"pdf":  true,
	"docx": true,
	"html": true,
	"htm":  true,
}

// ForFormat returns the writer for a format name such as "pdf".
func ForFormat(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "pdf":
		return &PDFWriter{}, nil
	case "docx":
		return &DOCXWriter{}, nil
	case "html", "htm":
		return &HTMLWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// ForFile returns the writer matching a filename's extension.
func ForFile(filename string) (Writer, error) {
	return ForFormat(filepath.Ext(filename))
}

// IsSupportedFormat checks a format name such as "docx".
func IsSupportedFormat(format string) bool {
	return SupportedFormats[strings.ToLower(strings.TrimPrefix(format, "."))]
}

// topY converts a bottom-origin y coordinate of an element of the given
// height into a top-origin one.
func topY(y, height float64) float64 {
	return PageHeight - (y + height)
}
