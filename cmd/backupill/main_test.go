package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beucismis/backupill/internal/chunker"
	"github.com/beucismis/backupill/internal/pipeline"
	"github.com/beucismis/backupill/internal/scan"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"bogus"}, {"backup"}, {"restore"}, {"verify"}} {
		code, _, stderr := runCLI(t, args...)
		if code != 2 {
			t.Errorf("%v: expected exit 2, got %d", args, code)
		}
		if !strings.Contains(stderr, "usage:") {
			t.Errorf("%v: expected usage on stderr, got %q", args, stderr)
		}
	}
}

func TestBackupThenVerify(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "key.txt")
	if err := os.WriteFile(src, []byte(strings.Repeat("0123456789abcdef", 60)), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI(t, "backup", "-max-bytes", "100", src)
	if code != 0 {
		t.Fatalf("backup exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, src+".pdf") {
		t.Errorf("expected output path in %q", stdout)
	}

	_, stdout, stderr = runCLI(t, "verify", src+".pdf")
	if !strings.Contains(stdout, `"pages": 2`) {
		t.Errorf("expected a 2 page report, got %q (stderr %q)", stdout, stderr)
	}
}

func TestBackup_HTMLToExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	out := filepath.Join(dir, "paper.html")
	os.WriteFile(src, []byte("hello"), 0o644)

	code, _, stderr := runCLI(t, "backup", "-format", "html", "-o", out, src)
	if code != 0 {
		t.Fatalf("backup exit %d: %s", code, stderr)
	}
	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "a.txt (1/1)") {
		t.Error("expected caption in html output")
	}
}

func TestBackup_MissingFile(t *testing.T) {
	code, _, _ := runCLI(t, "backup", filepath.Join(t.TempDir(), "nope"))
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
}

func TestRestore_FromText(t *testing.T) {
	dir := t.TempDir()
	data := "restored from paper\nwith a second line\n"
	chunks, err := chunker.Encode([]byte(data), 12)
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for i := len(chunks) - 1; i >= 0; i-- {
		lines = append(lines, string(chunks[i].Tagged()))
	}
	textFile := filepath.Join(dir, "scan.txt")
	os.WriteFile(textFile, []byte(strings.Join(lines, "\n")), 0o644)

	code, stdout, stderr := runCLI(t, "restore", "-from-text", textFile)
	if code != 0 {
		t.Fatalf("restore exit %d: %s", code, stderr)
	}
	if stdout != data {
		t.Errorf("expected %q, got %q", data, stdout)
	}

	out := filepath.Join(dir, "restored.txt")
	code, stdout, _ = runCLI(t, "restore", "-from-text", textFile, "-o", out)
	if code != 0 || stdout != "" {
		t.Fatalf("expected silent success, got %d %q", code, stdout)
	}
	got, _ := os.ReadFile(out)
	if string(got) != data {
		t.Errorf("expected file %q, got %q", data, got)
	}
}

func TestRestore_FromSavedRawOutput(t *testing.T) {
	dir := t.TempDir()
	data := "alpha beta gamma delta"
	chunks, err := chunker.Encode([]byte(data), 12)
	if err != nil {
		t.Fatal(err)
	}

	// zbarimg --raw terminates every symbol with a newline, the last one too.
	// Reverse order puts a middle chunk last.
	var lf, crlf strings.Builder
	for i := len(chunks) - 1; i >= 0; i-- {
		lf.WriteString(string(chunks[i].Tagged()) + "\n")
		crlf.WriteString(string(chunks[i].Tagged()) + "\r\n")
	}

	for name, content := range map[string]string{"lf.txt": lf.String(), "crlf.txt": crlf.String()} {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(content), 0o644)

		code, stdout, stderr := runCLI(t, "restore", "-from-text", path, "-chunks", "3")
		if code != 0 {
			t.Fatalf("%s: restore exit %d: %s", name, code, stderr)
		}
		if stdout != data {
			t.Errorf("%s: expected %q, got %q", name, data, stdout)
		}
	}
}

func TestRestore_EmptySavedOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.txt")
	os.WriteFile(path, []byte("\n"), 0o644)

	code, stdout, _ := runCLI(t, "restore", "-from-text", path)
	if code != 1 || stdout != "" {
		t.Errorf("expected exit 1 with no output, got %d %q", code, stdout)
	}
}

func TestRestore_GapFails(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "scan.txt")
	out := filepath.Join(dir, "restored.txt")
	os.WriteFile(textFile, []byte("^1 a\n^3 c"), 0o644)

	code, stdout, _ := runCLI(t, "restore", "-from-text", textFile, "-o", out)
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if stdout != "" {
		t.Errorf("expected no output, got %q", stdout)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("expected no output file")
	}
}

func TestRestoreExitCode(t *testing.T) {
	cases := []struct {
		res  *pipeline.RestoreResult
		err  error
		want int
	}{
		{&pipeline.RestoreResult{}, nil, 0},
		{&pipeline.RestoreResult{ScanExitCode: 4}, nil, 4},
		{&pipeline.RestoreResult{}, errors.New("gap"), 1},
		{&pipeline.RestoreResult{ScanExitCode: 2}, errors.New("gap"), 2},
		{&pipeline.RestoreResult{}, &scan.ExternalToolError{Tool: "zbarimg", ExitCode: -1}, 1},
		{&pipeline.RestoreResult{ScanExitCode: -1}, context.DeadlineExceeded, 1},
		{&pipeline.RestoreResult{ScanExitCode: -1}, nil, 1},
	}
	for _, c := range cases {
		if got := restoreExitCode(c.res, c.err); got != c.want {
			t.Errorf("restoreExitCode(%+v, %v) = %d, want %d", c.res, c.err, got, c.want)
		}
	}
}
