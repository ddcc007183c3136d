package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/beucismis/backupill/internal/pipeline"
)

type restoreBody struct {
	Results        []string `json:"results"`
	ExpectedChunks int      `json:"expected_chunks"`
}

// handleRestore reassembles texts the client already decoded.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4*s.cfg.MaxUploadBytes)

	var body restoreBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Results == nil {
		body.Results = []string{}
	}
	s.restore(w, r, pipeline.RestoreRequest{Results: body.Results, ExpectedChunks: body.ExpectedChunks})
}

// handleRestoreScan stores uploaded scans in a temp dir and runs the scanner
// over them.
func (s *Server) handleRestoreScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 16*s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	expected := 0
	if v := r.FormValue("expected_chunks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "expected_chunks must be a non-negative integer", http.StatusBadRequest)
			return
		}
		expected = n
	}

	dir, err := os.MkdirTemp("", "backupill-scan-*")
	if err != nil {
		jsonError(w, "failed to create scan dir", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	inputs := make([]string, 0, len(files))
	for i, fh := range files {
		path := filepath.Join(dir, fmt.Sprintf("%03d-%s", i, sanitizeFilename(fh.Filename)))
		if err := saveUpload(fh, path); err != nil {
			jsonError(w, "failed to store upload: "+err.Error(), http.StatusInternalServerError)
			return
		}
		inputs = append(inputs, path)
	}
	s.restore(w, r, pipeline.RestoreRequest{Inputs: inputs, ExpectedChunks: expected})
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request, req pipeline.RestoreRequest) {
	res, err := s.restorer.Restore(r.Context(), req)
	if err != nil {
		s.log.Warn("restore failed", "error", err, "texts", res.Texts, "scan_exit_code", res.ScanExitCode)
		codedError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("X-Backupill-Sha256", res.SHA256)
	w.Header().Set("X-Backupill-Scan-Exit-Code", strconv.Itoa(res.ScanExitCode))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
