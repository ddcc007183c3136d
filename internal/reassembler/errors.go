package reassembler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedInput = errors.New("malformed scan result")
	ErrAmbiguousChunk = errors.New("ambiguous chunk")
	ErrGap            = errors.New("missing chunks")
)

// maxQuoted bounds how much of a bad record ends up in an error message.
const maxQuoted = 32

// MalformedInputError reports a record that is not marker, digits, space,
// payload. Index is the record's position in the list being sorted.
type MalformedInputError struct {
	Index int
	Input string
}

func (e *MalformedInputError) Error() string {
	in := e.Input
	if len(in) > maxQuoted {
		in = in[:maxQuoted] + "..."
	}
	in = strings.ReplaceAll(in, string(Separator), string(Marker))
	return fmt.Sprintf("%s: record %d: %q", ErrMalformedInput, e.Index, in)
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

// AmbiguousChunkError reports two scans of the same sequence number with
// different payloads.
type AmbiguousChunkError struct {
	Seq int
}

func (e *AmbiguousChunkError) Error() string {
	return fmt.Sprintf("%s: sequence number %d scanned with different payloads", ErrAmbiguousChunk, e.Seq)
}

func (e *AmbiguousChunkError) Unwrap() error { return ErrAmbiguousChunk }

// GapError lists the sequence numbers between 1 and Max that were never seen.
type GapError struct {
	Missing []int
	Max     int
}

func (e *GapError) Error() string {
	const shown = 10
	parts := make([]string, 0, shown)
	for i, n := range e.Missing {
		if i == shown {
			parts = append(parts, fmt.Sprintf("... (%d total)", len(e.Missing)))
			break
		}
		parts = append(parts, strconv.Itoa(n))
	}
	return fmt.Sprintf("%s: %s (highest seen %d)", ErrGap, strings.Join(parts, ", "), e.Max)
}

func (e *GapError) Unwrap() error { return ErrGap }
