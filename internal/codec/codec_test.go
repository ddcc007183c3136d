package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"sync/atomic"
	"testing"
	"time"
)

// echoRenderer returns the text itself so ordering is easy to check.
type echoRenderer struct {
	delay   func(text []byte) time.Duration
	fail    string
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (e *echoRenderer) Render(text []byte) ([]byte, error) {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		m := e.maxSeen.Load()
		if n <= m || e.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if e.delay != nil {
		time.Sleep(e.delay(text))
	}
	if e.fail != "" && string(text) == e.fail {
		return nil, errors.New("boom")
	}
	return append([]byte("img:"), text...), nil
}

func TestRenderAll_PreservesOrder(t *testing.T) {
	var texts [][]byte
	for i := range 20 {
		texts = append(texts, []byte(fmt.Sprintf("^%d x", i+1)))
	}
	r := &echoRenderer{delay: func(text []byte) time.Duration {
		// Later chunks finish first.
		return time.Duration(40-len(text)*2) * time.Millisecond
	}}

	stats := NewStats(time.Hour)
	images, err := RenderAll(context.Background(), r, texts, 4, stats)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, img := range images {
		want := "img:" + string(texts[i])
		if string(img) != want {
			t.Errorf("image %d: expected %q, got %q", i, want, img)
		}
	}
	if r.maxSeen.Load() > 4 {
		t.Errorf("expected at most 4 concurrent renders, saw %d", r.maxSeen.Load())
	}
	snap := stats.Snapshot()
	if snap.Count != 20 {
		t.Errorf("expected 20 recorded samples, got %d", snap.Count)
	}
	var total int64
	for _, text := range texts {
		total += int64(len(text))
	}
	if snap.Bytes != total {
		t.Errorf("expected %d rendered bytes, got %d", total, snap.Bytes)
	}
}

func TestRenderAll_FirstErrorFails(t *testing.T) {
	texts := [][]byte{[]byte("^1 a"), []byte("^2 b"), []byte("^3 c")}
	r := &echoRenderer{fail: "^2 b"}

	images, err := RenderAll(context.Background(), r, texts, 2, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if images != nil {
		t.Errorf("expected no images on failure, got %d", len(images))
	}
}

func TestRenderAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RenderAll(ctx, &echoRenderer{}, [][]byte{[]byte("^1 a")}, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestQRRenderer_ProducesPNG(t *testing.T) {
	r := NewQRRenderer()
	img, err := r.Render([]byte("^1 hello, paper"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("expected valid png: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != b.Dy() || b.Dx() == 0 {
		t.Errorf("expected square non-empty image, got %v", b)
	}
}

func TestQRRenderer_FullCapacityChunk(t *testing.T) {
	text := append([]byte("^1 "), bytes.Repeat([]byte{0xff}, 137)...)
	if _, err := NewQRRenderer().Render(text); err != nil {
		t.Fatalf("expected 140-byte chunk to render, got %v", err)
	}
}
