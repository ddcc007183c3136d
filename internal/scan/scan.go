package scan

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is what one scanner invocation produced. Texts are in the order the
// tool reported them, which carries no meaning for reassembly.
type Result struct {
	Texts    []string
	ExitCode int
}

// Scanner decodes every optical code found in the given images or documents.
type Scanner interface {
	Scan(ctx context.Context, inputs ...string) (Result, error)
}

// ExternalToolError reports a scanner process that exited non-zero. It is
// returned together with whatever texts the process still produced.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ErrNoInputs is returned when Scan is called without inputs.
var ErrNoInputs = errors.New("no scan inputs")

// Zbar runs zbarimg restricted to QR codes.
type Zbar struct {
	Path    string        // defaults to "zbarimg"
	Timeout time.Duration // zero means no deadline beyond ctx
	// Raw switches to --raw output: one newline-terminated text per symbol,
	// returned as a single string for the reassembler to split.
	Raw bool
}

func (z *Zbar) Scan(ctx context.Context, inputs ...string) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, ErrNoInputs
	}
	if z.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, z.Timeout)
		defer cancel()
	}

	path := z.Path
	if path == "" {
		path = "zbarimg"
	}
	args := []string{"-q", "-Sdisable", "-Sqrcode.enable"}
	if z.Raw {
		args = append(args, "--raw")
	} else {
		args = append(args, "--xml")
	}
	args = append(args, "--")
	args = append(args, inputs...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("scan %d input(s): %w", len(inputs), err)
	}

	var res Result
	var toolErr *ExternalToolError
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{ExitCode: -1}, fmt.Errorf("run %s: %w", path, runErr)
		}
		res.ExitCode = exitErr.ExitCode()
		toolErr = &ExternalToolError{Tool: path, ExitCode: res.ExitCode, Stderr: stderr.String()}
	}

	var err error
	if z.Raw {
		res.Texts = ParseRaw(stdout.Bytes())
	} else {
		res.Texts, err = parseXML(stdout.Bytes())
	}
	if err != nil {
		return res, fmt.Errorf("parse %s output: %w", path, err)
	}
	if toolErr != nil {
		return res, toolErr
	}
	return res, nil
}

type xmlBarcodes struct {
	Sources []struct {
		Href    string `xml:"href,attr"`
		Indexes []struct {
			Symbols []struct {
				Type string  `xml:"type,attr"`
				Data xmlData `xml:"data"`
			} `xml:"symbol"`
		} `xml:"index"`
	} `xml:"source"`
}

type xmlData struct {
	Format string `xml:"format,attr"`
	Text   string `xml:",chardata"`
}

// parseXML extracts the data of every symbol from zbarimg --xml output.
// Binary payloads are reported base64 encoded and are decoded here.
func parseXML(out []byte) ([]string, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}

	var doc xmlBarcodes
	if err := xml.Unmarshal(out, &doc); err != nil {
		return nil, err
	}

	var texts []string
	for _, src := range doc.Sources {
		for _, idx := range src.Indexes {
			for _, sym := range idx.Symbols {
				text := sym.Data.Text
				if sym.Data.Format == "base64" {
					raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(text), ""))
					if err != nil {
						return nil, fmt.Errorf("symbol in %s: %w", src.Href, err)
					}
					text = string(raw)
				}
				texts = append(texts, text)
			}
		}
	}
	return texts, nil
}

// ParseRaw returns --raw output, live or saved to a file, as one buffer
// without the newline that terminates the last symbol. A buffer ending in
// "\r\n" was saved with CRLF line endings; every "\r\n" is turned back into
// "\n" so no '\r' is left at the end of a payload.
func ParseRaw(out []byte) []string {
	if bytes.HasSuffix(out, []byte("\r\n")) {
		out = bytes.ReplaceAll(out, []byte("\r\n"), []byte("\n"))
	}
	out = bytes.TrimSuffix(out, []byte("\n"))
	if len(out) == 0 {
		return nil
	}
	return []string{string(out)}
}
