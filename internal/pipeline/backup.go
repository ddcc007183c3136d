package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/beucismis/backupill/internal/chunker"
	"github.com/beucismis/backupill/internal/codec"
	"github.com/beucismis/backupill/internal/document"
	"github.com/beucismis/backupill/internal/layout"
	"github.com/beucismis/backupill/internal/reassembler"
)

// BackupRequest describes one file to put on paper.
type BackupRequest struct {
	Name   string // source path; its base name goes into every caption
	Data   []byte
	Output string // destination path; defaults to Name + "." + Format
	Format string // pdf, docx or html; defaults to Output's extension, then pdf

	MaxEncodableSize int // defaults to chunker.DefaultMaxEncodableSize
	Verify           bool
}

// BackupResult reports what was written.
type BackupResult struct {
	Output  string           `json:"output"`
	Format  string           `json:"format"`
	Bytes   int              `json:"bytes"`
	Chunks  int              `json:"chunks"`
	Pages   int              `json:"pages"`
	SHA256  string           `json:"sha256"`
	Report  *document.Report `json:"report,omitempty"`
	Warning string           `json:"warning,omitempty"`
}

// Tracker receives progress from Backup. Job implements it.
type Tracker interface {
	SetStatus(status JobStatus, phase string)
	SetTotalChunks(n int)
	IncrChunksRendered()
	SetPages(n int)
}

type noopTracker struct{}

func (noopTracker) SetStatus(JobStatus, string) {}
func (noopTracker) SetTotalChunks(int)          {}
func (noopTracker) IncrChunksRendered()         {}
func (noopTracker) SetPages(int)                {}

// Encoder runs the backup path: chunk, plan pages, render codes, write the
// document.
type Encoder struct {
	Renderer codec.Renderer
	Grid     layout.Grid
	Workers  int
	Stats    *codec.Stats
	Log      *slog.Logger
}

// NewEncoder uses the QR renderer and the default six-slot grid.
func NewEncoder(workers int, stats *codec.Stats, log *slog.Logger) *Encoder {
	return &Encoder{
		Renderer: codec.NewQRRenderer(),
		Grid:     layout.DefaultGrid(),
		Workers:  workers,
		Stats:    stats,
		Log:      log,
	}
}

// Backup writes req.Data as a printable document. Nothing is left at the
// output path when it fails.
func (e *Encoder) Backup(ctx context.Context, req BackupRequest, tr Tracker) (*BackupResult, error) {
	if tr == nil {
		tr = noopTracker{}
	}
	format, output := resolveOutput(req)
	writer, err := document.ForFormat(format)
	if err != nil {
		return nil, err
	}
	size := req.MaxEncodableSize
	if size == 0 {
		size = chunker.DefaultMaxEncodableSize
	}
	log := e.logger().With("source", layout.BaseName(req.Name), "output", output)

	tr.SetStatus(StatusChunking, "chunking")
	chunks, err := chunker.Encode(req.Data, size)
	if err != nil {
		return nil, err
	}
	tr.SetTotalChunks(len(chunks))

	res := &BackupResult{
		Output: output,
		Format: format,
		Bytes:  len(req.Data),
		Chunks: len(chunks),
		SHA256: ContentHashHex(req.Data),
	}

	var flagged []int
	for _, c := range chunks {
		if reassembler.HasEmbeddedTag(string(c.Tagged())) {
			flagged = append(flagged, c.Seq)
		}
	}
	if len(flagged) > 0 {
		res.Warning = fmt.Sprintf("chunks %v contain a newline followed by a tag and cannot be restored; change the file before printing it", flagged)
		log.Warn("embedded tag in payload", "chunks", flagged)
	}

	pages, err := layout.Plan(chunks, e.Grid, req.Name)
	if err != nil {
		return nil, err
	}
	tr.SetPages(len(pages))
	res.Pages = len(pages)
	log.Info("planned backup", "bytes", len(req.Data), "chunks", len(chunks), "pages", len(pages))

	tr.SetStatus(StatusRendering, "rendering")
	texts := make([][]byte, 0, len(chunks))
	for _, p := range pages {
		for _, s := range p.Slots {
			texts = append(texts, s.Text)
		}
	}
	r := &countingRenderer{Renderer: e.Renderer, done: tr.IncrChunksRendered}
	images, err := codec.RenderAll(ctx, r, texts, e.Workers, e.Stats.ForFormat(format))
	if err != nil {
		return nil, err
	}

	tr.SetStatus(StatusWriting, "writing")
	doc, err := document.Build(layout.BaseName(req.Name), pages, images)
	if err != nil {
		return nil, err
	}
	err = document.WriteFileAtomic(output, func(w io.Writer) error {
		return writer.Write(w, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", output, err)
	}

	if req.Verify {
		rep, err := document.Verify(output, format)
		if err == nil && rep.Pages != len(pages) {
			err = fmt.Errorf("document has %d pages, planned %d", rep.Pages, len(pages))
		}
		if err != nil {
			os.Remove(output)
			return nil, fmt.Errorf("verify %s: %w", output, err)
		}
		res.Report = rep
		if !rep.Complete() {
			log.Warn("captions not fully readable from document text", "missing", rep.Missing, "footers", len(rep.Footers))
		}
	}

	log.Info("backup written", "sha256", res.SHA256)
	return res, nil
}

func (e *Encoder) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}

// resolveOutput fills in the format and destination path.
func resolveOutput(req BackupRequest) (format, output string) {
	format = strings.ToLower(strings.TrimPrefix(req.Format, "."))
	output = req.Output
	if format == "" && output != "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(output), "."))
	}
	if format == "" {
		format = "pdf"
	}
	if output == "" {
		output = req.Name + "." + format
	}
	return format, output
}

type countingRenderer struct {
	codec.Renderer
	done func()
}

func (c *countingRenderer) Render(text []byte) ([]byte, error) {
	img, err := c.Renderer.Render(text)
	if err == nil {
		c.done()
	}
	return img, err
}
