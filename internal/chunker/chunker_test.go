package chunker

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEncode_ExactSplitPoints(t *testing.T) {
	chunks, err := Encode([]byte("ABCDEFG"), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"^1 ABCD", "^2 EFG"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if got := string(chunks[i].Tagged()); got != w {
			t.Errorf("chunk %d: expected %q, got %q", i, w, got)
		}
	}
}

func TestEncode_NeverExceedsCapacity(t *testing.T) {
	chunks, err := Encode([]byte("abcdefghij"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(chunks[0].Tagged()) != "^1 abcdefg" {
		t.Errorf("expected first chunk %q, got %q", "^1 abcdefg", chunks[0].Tagged())
	}
	for _, c := range chunks {
		if c.Len() > 10 {
			t.Errorf("chunk %d: tagged length %d exceeds 10", c.Seq, c.Len())
		}
	}
}

func TestEncode_SequenceNumbersContiguous(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 200)
	chunks, err := Encode(data, DefaultMaxEncodableSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if c.Seq != i+1 {
			t.Fatalf("chunk %d: expected seq %d, got %d", i, i+1, c.Seq)
		}
		if c.Len() > DefaultMaxEncodableSize {
			t.Errorf("chunk %d: tagged length %d exceeds %d", c.Seq, c.Len(), DefaultMaxEncodableSize)
		}
	}
	// Every chunk but the last is filled to capacity.
	for _, c := range chunks[:len(chunks)-1] {
		if c.Len() != DefaultMaxEncodableSize {
			t.Errorf("chunk %d: expected full chunk, got length %d", c.Seq, c.Len())
		}
	}
}

func TestEncode_EmptyStream(t *testing.T) {
	chunks, err := Encode(nil, DefaultMaxEncodableSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Seq != 1 || len(chunks[0].Payload) != 0 {
		t.Errorf("expected empty chunk 1, got seq=%d payload=%q", chunks[0].Seq, chunks[0].Payload)
	}
	if string(chunks[0].Tagged()) != "^1 " {
		t.Errorf("expected tagged form %q, got %q", "^1 ", chunks[0].Tagged())
	}
}

func TestEncode_CapacityTooSmall(t *testing.T) {
	_, err := Encode([]byte("abc"), 3)
	if err == nil {
		t.Fatal("expected configuration error")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
	if cfgErr.Seq != 1 {
		t.Errorf("expected failing seq 1, got %d", cfgErr.Seq)
	}
	if !errors.Is(err, ErrCapacityTooSmall) {
		t.Error("expected errors.Is(err, ErrCapacityTooSmall)")
	}
}

func TestEncode_TagOutgrowsCapacity(t *testing.T) {
	// Capacity 4 fits "^1 x" through "^9 x" but not "^10 x".
	_, err := Encode([]byte(strings.Repeat("x", 20)), 4)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if cfgErr.Seq != 10 {
		t.Errorf("expected failing seq 10, got %d", cfgErr.Seq)
	}
}

func TestEncode_KeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; with room for 3 payload bytes it must not straddle chunks.
	data := []byte("aééé")
	chunks, err := Encode(data, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range chunks {
		if !utf8.Valid(c.Payload) {
			t.Errorf("chunk %d: payload %q split a rune", c.Seq, c.Payload)
		}
	}
	if !bytes.Equal(Join(chunks), data) {
		t.Errorf("expected %q after join, got %q", data, Join(chunks))
	}
}

func TestEncode_WideRuneFallsBackToBytes(t *testing.T) {
	// A 4-byte rune cannot fit in "^1 " + 2 bytes, so it is split bytewise.
	data := []byte("😀")
	chunks, err := Encode(data, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !bytes.Equal(Join(chunks), data) {
		t.Errorf("expected %q after join, got %q", data, Join(chunks))
	}
}

func TestEncode_InvalidUTF8(t *testing.T) {
	data := []byte{0xff, 0xfe, 'a', 0x80, 0x00, '^'}
	chunks, err := Encode(data, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(Join(chunks), data) {
		t.Errorf("expected %v after join, got %v", data, Join(chunks))
	}
}

func TestEncode_DoesNotAliasInput(t *testing.T) {
	data := []byte("hello")
	chunks, err := Encode(data, DefaultMaxEncodableSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data[0] = 'j'
	if string(chunks[0].Payload) != "hello" {
		t.Errorf("chunk payload changed with source buffer: %q", chunks[0].Payload)
	}
}

func TestJoin_OrdersBySeq(t *testing.T) {
	data := []byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40))
	chunks, err := Encode(data, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	rng.Shuffle(len(chunks), func(i, j int) { chunks[i], chunks[j] = chunks[j], chunks[i] })

	if !bytes.Equal(Join(chunks), data) {
		t.Error("expected shuffled chunks to join back to the source")
	}
}

func TestTag(t *testing.T) {
	cases := map[int]string{1: "^1 ", 9: "^9 ", 10: "^10 ", 1234: "^1234 "}
	for seq, want := range cases {
		if got := Tag(seq); got != want {
			t.Errorf("Tag(%d): expected %q, got %q", seq, want, got)
		}
	}
	if MinCapacity(10) != 5 {
		t.Errorf("expected MinCapacity(10)=5, got %d", MinCapacity(10))
	}
}
