package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

var (
	captionRe    = regexp.MustCompile(`\((\d+)/(\d+)\)`)
	footerRe     = regexp.MustCompile(`Page (\d+)`)
	footerLineRe = regexp.MustCompile(`^Page \d+$`)
)

// Report summarizes what could be read back from a generated document.
type Report struct {
	Pages    int   `json:"pages"`
	Footers  []int `json:"footers"`
	Captions []int `json:"captions"` // chunk indexes found in "(i/N)" captions
	Total    int   `json:"total"`    // N from the captions, 0 if none were found
	Missing  []int `json:"missing,omitempty"`
}

// Complete reports whether every page carries its footer and every chunk
// from 1 to Total has a caption.
func (r *Report) Complete() bool {
	if r.Total == 0 || len(r.Missing) > 0 || len(r.Footers) != r.Pages {
		return false
	}
	for i, f := range r.Footers {
		if f != i+1 {
			return false
		}
	}
	return true
}

// VerifyFile reads a generated backup back, picking the reader from the
// file extension.
func VerifyFile(path string) (*Report, error) {
	return Verify(path, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Verify reads back a backup written in the given format.
func Verify(path, format string) (*Report, error) {
	switch strings.ToLower(format) {
	case "pdf":
		return VerifyPDFFile(path)
	case "docx":
		return VerifyDOCXFile(path)
	case "html", "htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return VerifyHTML(f)
	default:
		return nil, fmt.Errorf("cannot verify %q documents", format)
	}
}

// VerifyPDFFile reads a generated PDF and reports its pages and captions.
func VerifyPDFFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return VerifyPDF(f, info.Size())
}

// VerifyPDF is VerifyPDFFile over an in-memory or already open document.
func VerifyPDF(r io.ReaderAt, size int64) (*Report, error) {
	reader, err := pdflib.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	b := newReportBuilder()
	b.rep.Pages = reader.NumPage()
	for i := 1; i <= b.rep.Pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.scan(text)
	}
	return b.finish(), nil
}

type reportBuilder struct {
	rep  Report
	seen map[int]bool
}

func newReportBuilder() *reportBuilder {
	return &reportBuilder{seen: make(map[int]bool)}
}

// scan records the footers and captions found in one page of text.
func (b *reportBuilder) scan(text string) {
	text = strings.Join(strings.Fields(text), " ")

	for _, m := range footerRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			b.rep.Footers = append(b.rep.Footers, n)
		}
	}
	for _, m := range captionRe.FindAllStringSubmatch(text, -1) {
		idx, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		if total > b.rep.Total {
			b.rep.Total = total
		}
		if !b.seen[idx] {
			b.seen[idx] = true
			b.rep.Captions = append(b.rep.Captions, idx)
		}
	}
}

func (b *reportBuilder) finish() *Report {
	slices.Sort(b.rep.Captions)
	for n := 1; n <= b.rep.Total; n++ {
		if !b.seen[n] {
			b.rep.Missing = append(b.rep.Missing, n)
		}
	}
	return &b.rep
}
