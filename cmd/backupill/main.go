// Command backupill puts files on paper as pages of QR codes and restores
// them from scans.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/beucismis/backupill/internal/api"
	"github.com/beucismis/backupill/internal/config"
	"github.com/beucismis/backupill/internal/document"
	"github.com/beucismis/backupill/internal/pipeline"
	"github.com/beucismis/backupill/internal/scan"
)

const usage = `usage: backupill <command> [flags] [args]

commands:
  backup  [-format pdf|docx|html] [-o out] [-max-bytes N] [-workers N] <file>
  restore [-o out] [-chunks N] [-timeout D] [-raw] [-from-text file] <scan>...
  verify  <document>
  serve
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "backup":
		return runBackup(ctx, cfg, log, args[1:], stdout, stderr)
	case "restore":
		return runRestore(ctx, cfg, log, args[1:], stdout, stderr)
	case "verify":
		return runVerify(args[1:], stdout, stderr)
	case "serve":
		if err := cfg.ValidateServer(); err != nil {
			log.Error("invalid configuration", "error", err)
			return 1
		}
		if err := api.ListenAndServe(ctx, cfg, log); err != nil {
			log.Error("server error", "error", err)
			return 1
		}
		return 0
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}
}

func runBackup(ctx context.Context, cfg config.Config, log *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", cfg.OutputFormat, "output format: pdf, docx or html")
	out := fs.String("o", "", "output path (default <file>.<format>)")
	maxBytes := fs.Int("max-bytes", cfg.MaxEncodableSize, "bytes per code, tag included")
	workers := fs.Int("workers", cfg.MaxConcurrentRender, "concurrent code renders")
	verify := fs.Bool("verify", true, "read the document back and check its page count")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("read input", "error", err)
		return 1
	}

	enc := pipeline.NewEncoder(*workers, nil, log)
	res, err := enc.Backup(ctx, pipeline.BackupRequest{
		Name:             path,
		Data:             data,
		Output:           *out,
		Format:           *format,
		MaxEncodableSize: *maxBytes,
		Verify:           *verify,
	}, nil)
	if err != nil {
		log.Error("backup failed", "error", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s: %d bytes, %d chunks, %d pages, sha256 %s\n", res.Output, res.Bytes, res.Chunks, res.Pages, res.SHA256)
	return 0
}

func runRestore(ctx context.Context, cfg config.Config, log *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "output path (default stdout)")
	chunks := fs.Int("chunks", 0, "total chunk count N from the captions, if known")
	timeout := fs.Duration("timeout", cfg.ScanTimeout, "scanner deadline")
	raw := fs.Bool("raw", false, "read scanner --raw output instead of --xml")
	fromText := fs.String("from-text", "", "reassemble saved scanner text output (- for stdin) instead of scanning")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	req := pipeline.RestoreRequest{Inputs: fs.Args(), ExpectedChunks: *chunks, Output: *out}
	switch {
	case *fromText != "":
		saved, err := readText(*fromText)
		if err != nil {
			log.Error("read scanner output", "error", err)
			return 1
		}
		req.Results = scan.ParseRaw(saved)
		if req.Results == nil {
			req.Results = []string{}
		}
	case fs.NArg() == 0:
		fmt.Fprint(stderr, usage)
		return 2
	}

	r := &pipeline.Restorer{
		Scanner: &scan.Zbar{Path: cfg.ScannerPath, Timeout: *timeout, Raw: *raw},
		Log:     log,
	}
	res, err := r.Restore(ctx, req)
	if err != nil {
		log.Error("restore failed", "error", err, "texts", res.Texts, "scan_exit_code", res.ScanExitCode)
		return restoreExitCode(res, err)
	}
	if *out == "" {
		if _, err := stdout.Write(res.Data); err != nil {
			log.Error("write output", "error", err)
			return 1
		}
	}
	return restoreExitCode(res, nil)
}

// restoreExitCode mirrors the scanner's status. A failed reconstruction is
// never reported as success. A scanner killed by a deadline or signal reports
// -1, which maps to 1.
func restoreExitCode(res *pipeline.RestoreResult, err error) int {
	var toolErr *scan.ExternalToolError
	switch {
	case res.ScanExitCode > 0:
		return res.ScanExitCode
	case errors.As(err, &toolErr) && toolErr.ExitCode > 0:
		return toolErr.ExitCode
	case err != nil, res.ScanExitCode < 0:
		return 1
	}
	return 0
}

func readText(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	rep, err := document.VerifyFile(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "verify %s: %v\n", args[0], err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return 1
	}
	if !rep.Complete() {
		return 1
	}
	return 0
}
