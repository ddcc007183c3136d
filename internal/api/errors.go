package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/beucismis/backupill/internal/chunker"
	"github.com/beucismis/backupill/internal/reassembler"
	"github.com/beucismis/backupill/internal/scan"
)

// ErrorCode classifies pipeline failures for API clients.
type ErrorCode string

const (
	ErrCodeConfiguration  ErrorCode = "CONFIGURATION"
	ErrCodeMalformedInput ErrorCode = "MALFORMED_INPUT"
	ErrCodeAmbiguousChunk ErrorCode = "AMBIGUOUS_CHUNK"
	ErrCodeGap            ErrorCode = "GAP"
	ErrCodeExternalTool   ErrorCode = "EXTERNAL_TOOL"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeInternal       ErrorCode = "INTERNAL"
)

// classify maps an error to its code and HTTP status.
func classify(err error) (ErrorCode, int) {
	var toolErr *scan.ExternalToolError
	switch {
	case errors.Is(err, chunker.ErrCapacityTooSmall):
		return ErrCodeConfiguration, http.StatusUnprocessableEntity
	case errors.Is(err, reassembler.ErrMalformedInput):
		return ErrCodeMalformedInput, http.StatusUnprocessableEntity
	case errors.Is(err, reassembler.ErrAmbiguousChunk):
		return ErrCodeAmbiguousChunk, http.StatusUnprocessableEntity
	case errors.Is(err, reassembler.ErrGap):
		return ErrCodeGap, http.StatusUnprocessableEntity
	case errors.As(err, &toolErr):
		return ErrCodeExternalTool, http.StatusBadGateway
	case errors.Is(err, scan.ErrNoInputs):
		return ErrCodeBadRequest, http.StatusBadRequest
	default:
		return ErrCodeInternal, http.StatusInternalServerError
	}
}

func codedError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": string(code)})
}
