package api

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/yuin/goldmark"
)

//go:embed usage.md
var usageMarkdown []byte

const usageHead = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>backupill</title>
<style>body{font-family:sans-serif;max-width:50em;margin:2em auto}pre{background:#f4f4f4;padding:1em}</style>
</head><body>
`

func renderUsage() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(usageHead)
	if err := goldmark.New().Convert(usageMarkdown, &buf); err != nil {
		return nil, fmt.Errorf("render usage page: %w", err)
	}
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.usage)
}
