package reassembler

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// Marker opens a tag in the printed text.
	Marker = '^'
	// Separator replaces Marker once a record has been normalized.
	Separator = '\x00'
)

// Decode reassembles raw scanner output into the original byte stream. Only
// gaps below the highest sequence number seen can be detected; use a Decoder
// with ExpectedChunks to also catch missing trailing chunks.
func Decode(raw []string) ([]byte, error) {
	return Decoder{}.Decode(raw)
}

// Decoder reassembles scanner output.
type Decoder struct {
	// ExpectedChunks, when positive, is the total printed in every caption
	// "(i/N)". Sequence numbers up to it must all be present.
	ExpectedChunks int
}

func (d Decoder) Decode(raw []string) ([]byte, error) {
	sorted, err := SortByKey(Normalize(raw))
	if err != nil {
		return nil, err
	}

	out, err := StripAndJoin(sorted)
	if d.ExpectedChunks <= 0 {
		return out, err
	}

	var gapErr *GapError
	switch {
	case errors.As(err, &gapErr):
		if gapErr.Max == 0 {
			gapErr.Missing = nil
		}
		gapErr.Missing = appendRange(gapErr.Missing, gapErr.Max+1, d.ExpectedChunks)
		return nil, gapErr
	case err != nil:
		return nil, err
	}

	last, _, _ := parseRecord(sorted[len(sorted)-1])
	if last > d.ExpectedChunks {
		return nil, fmt.Errorf("sequence number %d exceeds expected chunk count %d", last, d.ExpectedChunks)
	}
	if last < d.ExpectedChunks {
		return nil, &GapError{Missing: appendRange(nil, last+1, d.ExpectedChunks), Max: last}
	}
	return out, nil
}

// HasEmbeddedTag reports whether a tagged chunk text contains a newline
// followed by something that looks like a tag. Normalize splits every input
// string at such a point, so a chunk like this cannot be restored: Decode
// either fails or, when the fake tag names an unused sequence number,
// returns the wrong bytes.
func HasEmbeddedTag(text string) bool {
	for i := 1; i < len(text); i++ {
		if text[i-1] == '\n' && tagLen(text, i) > 0 {
			return true
		}
	}
	return false
}

func appendRange(dst []int, from, to int) []int {
	for n := from; n <= to; n++ {
		dst = append(dst, n)
	}
	return dst
}

// Normalize turns raw scanner output into one record per tagged chunk, each
// starting with Separator instead of Marker. A raw string may hold several
// chunks joined by newlines; a newline directly followed by a tag starts a new
// record and is dropped. A string that does not begin with a tag is passed
// through unchanged so SortByKey can report it.
func Normalize(raw []string) []string {
	records := make([]string, 0, len(raw))
	for _, s := range raw {
		if tagLen(s, 0) == 0 {
			records = append(records, s)
			continue
		}
		start := 0
		for i := 0; i < len(s); i++ {
			if s[i] == '\n' && tagLen(s, i+1) > 0 {
				records = append(records, normalizeRecord(s[start:i]))
				start = i + 1
			}
		}
		records = append(records, normalizeRecord(s[start:]))
	}
	return records
}

// SortByKey orders normalized records by ascending sequence number. The sort
// is stable, so duplicates keep their input order.
func SortByKey(records []string) ([]string, error) {
	type keyed struct {
		seq int
		rec string
	}
	keys := make([]keyed, len(records))
	for i, rec := range records {
		seq, _, ok := parseRecord(rec)
		if !ok {
			return nil, &MalformedInputError{Index: i, Input: rec}
		}
		keys[i] = keyed{seq: seq, rec: rec}
	}

	slices.SortStableFunc(keys, func(a, b keyed) int { return a.seq - b.seq })

	sorted := make([]string, len(keys))
	for i, k := range keys {
		sorted[i] = k.rec
	}
	return sorted, nil
}

// StripAndJoin removes the "\x00<n> " marker from each sorted record and
// concatenates what remains. Repeated sequence numbers must carry identical
// payloads; the numbers must cover 1 through the highest one seen.
func StripAndJoin(sorted []string) ([]byte, error) {
	var (
		out     bytes.Buffer
		missing []int
		prevSeq int
		prevPay string
	)

	for i, rec := range sorted {
		seq, payload, ok := parseRecord(rec)
		if !ok {
			return nil, &MalformedInputError{Index: i, Input: rec}
		}

		switch {
		case seq == prevSeq:
			if payload != prevPay {
				return nil, &AmbiguousChunkError{Seq: seq}
			}
			continue
		case seq < prevSeq:
			return nil, fmt.Errorf("records not sorted: %d after %d", seq, prevSeq)
		}

		for n := prevSeq + 1; n < seq; n++ {
			missing = append(missing, n)
		}
		out.WriteString(payload)
		prevSeq, prevPay = seq, payload
	}

	if prevSeq == 0 {
		return nil, &GapError{Missing: []int{1}}
	}
	if len(missing) > 0 {
		return nil, &GapError{Missing: missing, Max: prevSeq}
	}
	return out.Bytes(), nil
}

func normalizeRecord(rec string) string {
	return string(Separator) + rec[1:]
}

// parseRecord splits "\x00<digits> <payload>". Sequence numbers are positive
// and have no leading zeros.
func parseRecord(rec string) (seq int, payload string, ok bool) {
	if len(rec) == 0 || rec[0] != Separator {
		return 0, "", false
	}
	rest := rec[1:]
	sp := strings.IndexByte(rest, ' ')
	if sp <= 0 || rest[0] == '0' {
		return 0, "", false
	}
	for i := 0; i < sp; i++ {
		c := rest[i]
		if c < '0' || c > '9' {
			return 0, "", false
		}
		seq = seq*10 + int(c-'0')
		if seq > maxSeq {
			return 0, "", false
		}
	}
	return seq, rest[sp+1:], true
}

// maxSeq bounds parsed sequence numbers well below int overflow.
const maxSeq = 1 << 30

// tagLen returns the length of the "^<digits> " tag starting at s[i], or 0.
func tagLen(s string, i int) int {
	if i >= len(s) || s[i] != Marker {
		return 0
	}
	j := i + 1
	if j >= len(s) || s[j] < '1' || s[j] > '9' {
		return 0
	}
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j >= len(s) || s[j] != ' ' {
		return 0
	}
	return j + 1 - i
}
