package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/beucismis/backupill/internal/document"
	"github.com/beucismis/backupill/internal/reassembler"
	"github.com/beucismis/backupill/internal/scan"
)

// RestoreRequest names the scans to decode, or carries already decoded texts.
type RestoreRequest struct {
	Inputs  []string // images or documents handed to the scanner
	Results []string // raw texts; when set, no scanner is run

	// ExpectedChunks is the N printed in the captions "(i/N)", if known.
	ExpectedChunks int
	Output         string // when set, the restored bytes are written here
}

// RestoreResult reports a reconstruction.
type RestoreResult struct {
	Data         []byte `json:"-"`
	Bytes        int    `json:"bytes"`
	Texts        int    `json:"texts"`
	ScanExitCode int    `json:"scan_exit_code"`
	SHA256       string `json:"sha256,omitempty"`
	Output       string `json:"output,omitempty"`
}

// Restorer runs the restore path: scan, reassemble, write.
type Restorer struct {
	Scanner scan.Scanner
	Log     *slog.Logger
}

// Restore rebuilds the original bytes. A scanner that exits non-zero fails
// the restore only if it produced no texts at all; the exit code is kept in
// the result either way. No output file is written unless reassembly succeeds.
func (d *Restorer) Restore(ctx context.Context, req RestoreRequest) (*RestoreResult, error) {
	log := d.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	res := &RestoreResult{}
	texts := req.Results
	if texts == nil {
		if d.Scanner == nil {
			return res, errors.New("no scanner configured")
		}
		scanned, err := d.Scanner.Scan(ctx, req.Inputs...)
		res.ScanExitCode = scanned.ExitCode

		var toolErr *scan.ExternalToolError
		switch {
		case errors.As(err, &toolErr) && len(scanned.Texts) > 0:
			log.Warn("scanner failed but produced results, reassembling anyway",
				"exit_code", toolErr.ExitCode, "texts", len(scanned.Texts))
		case err != nil:
			return res, err
		}
		texts = scanned.Texts
		log.Info("scan complete", "inputs", len(req.Inputs), "texts", len(texts))
	}
	res.Texts = len(texts)

	data, err := reassembler.Decoder{ExpectedChunks: req.ExpectedChunks}.Decode(texts)
	if err != nil {
		return res, err
	}
	res.Data = data
	res.Bytes = len(data)
	res.SHA256 = ContentHashHex(data)

	if req.Output != "" {
		err := document.WriteFileAtomic(req.Output, func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(data))
			return err
		})
		if err != nil {
			return res, fmt.Errorf("write %s: %w", req.Output, err)
		}
		res.Output = req.Output
	}

	log.Info("restore complete", "bytes", len(data), "sha256", res.SHA256)
	return res, nil
}
