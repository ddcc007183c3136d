package chunker

import (
	"bytes"
	"slices"
	"strconv"
	"unicode/utf8"
)

// DefaultMaxEncodableSize is the byte capacity of a single optical code
// (QR version auto-fit, error correction L) used by the original printouts.
const DefaultMaxEncodableSize = 140

// TagMarker opens every tag.
const TagMarker = '^'

// Chunk is one bounded piece of the source stream. Seq is its identity: it is
// printed in-band as the tag, so scanned chunks can be put back in order.
type Chunk struct {
	Seq     int
	Payload []byte
}

// Tag returns the textual prefix for sequence number seq, e.g. "^12 ".
func Tag(seq int) string {
	return string(TagMarker) + strconv.Itoa(seq) + " "
}

// Tagged returns the bytes fed to the optical-code emitter.
func (c Chunk) Tagged() []byte {
	tag := Tag(c.Seq)
	out := make([]byte, 0, len(tag)+len(c.Payload))
	out = append(out, tag...)
	return append(out, c.Payload...)
}

// Len is the size of the tagged form in bytes.
func (c Chunk) Len() int {
	return len(Tag(c.Seq)) + len(c.Payload)
}

// MinCapacity returns the smallest maxEncodableSize able to carry the tag of
// sequence number seq plus one payload byte.
func MinCapacity(seq int) int {
	return len(Tag(seq)) + 1
}

// Encode splits stream into chunks whose tagged form never exceeds
// maxEncodableSize bytes. Chunks are filled greedily in order. A valid UTF-8
// sequence is never split across two chunks unless it cannot fit even in an
// empty one. An empty stream yields a single chunk with an empty payload.
func Encode(stream []byte, maxEncodableSize int) ([]Chunk, error) {
	seq := 1
	if err := checkCapacity(seq, maxEncodableSize); err != nil {
		return nil, err
	}

	var chunks []Chunk
	room := maxEncodableSize - len(Tag(seq))
	start := 0

	for i := 0; i < len(stream); {
		n := unitLen(stream[i:])
		if i-start+n > room {
			if i == start {
				// Unit wider than an empty chunk; fall back to bytes.
				n = 1
			} else {
				chunks = append(chunks, Chunk{Seq: seq, Payload: bytes.Clone(stream[start:i])})
				seq++
				if err := checkCapacity(seq, maxEncodableSize); err != nil {
					return nil, err
				}
				room = maxEncodableSize - len(Tag(seq))
				start = i
				continue
			}
		}
		i += n
	}

	payload := bytes.Clone(stream[start:])
	if payload == nil {
		payload = []byte{}
	}
	chunks = append(chunks, Chunk{Seq: seq, Payload: payload})
	return chunks, nil
}

// Join concatenates chunk payloads in sequence-number order.
func Join(chunks []Chunk) []byte {
	sorted := slices.Clone(chunks)
	slices.SortStableFunc(sorted, func(a, b Chunk) int { return a.Seq - b.Seq })

	var buf bytes.Buffer
	for _, c := range sorted {
		buf.Write(c.Payload)
	}
	return buf.Bytes()
}

func checkCapacity(seq, maxEncodableSize int) error {
	if MinCapacity(seq) > maxEncodableSize {
		return &ConfigurationError{MaxEncodableSize: maxEncodableSize, Seq: seq}
	}
	return nil
}

// unitLen is the length of the UTF-8 sequence at the start of b, or 1 for an
// invalid byte.
func unitLen(b []byte) int {
	r, n := utf8.DecodeRune(b)
	if r == utf8.RuneError && n <= 1 {
		return 1
	}
	return n
}
