package layout

import (
	"errors"
	"strings"
	"testing"

	"github.com/beucismis/backupill/internal/chunker"
)

func makeChunks(t *testing.T, n int) []chunker.Chunk {
	t.Helper()
	chunks, err := chunker.Encode([]byte(strings.Repeat("x", n)), 4)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(chunks) != n {
		t.Fatalf("expected %d chunks, got %d", n, len(chunks))
	}
	return chunks
}

func TestPlan_ThirteenChunksSixPerPage(t *testing.T) {
	chunks := make([]chunker.Chunk, 13)
	for i := range chunks {
		chunks[i] = chunker.Chunk{Seq: i + 1, Payload: []byte{'a' + byte(i)}}
	}

	pages, err := Plan(chunks, DefaultGrid(), "/home/user/notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	wantSlots := []int{6, 6, 1}
	for i, w := range wantSlots {
		if len(pages[i].Slots) != w {
			t.Errorf("page %d: expected %d slots, got %d", i, w, len(pages[i].Slots))
		}
		if pages[i].Number != i {
			t.Errorf("page %d: expected number %d, got %d", i, i, pages[i].Number)
		}
	}
	if PageCount(13, 6) != 3 {
		t.Errorf("expected PageCount(13, 6)=3, got %d", PageCount(13, 6))
	}
}

func TestPlan_SlotPositionsAndCaptions(t *testing.T) {
	chunks := makeChunks(t, 8)
	grid := DefaultGrid()

	pages, err := Plan(chunks, grid, "dir/sub/secret.key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for p, page := range pages {
		for s, slot := range page.Slots {
			i := p*grid.SlotsPerPage() + s
			if slot.Position != grid.Positions[s] {
				t.Errorf("chunk %d: expected position %v, got %v", i, grid.Positions[s], slot.Position)
			}
			if slot.Index != i+1 || slot.Total != 8 {
				t.Errorf("chunk %d: expected index %d/8, got %d/%d", i, i+1, slot.Index, slot.Total)
			}
			if string(slot.Text) != string(chunks[i].Tagged()) {
				t.Errorf("chunk %d: expected tagged text %q, got %q", i, chunks[i].Tagged(), slot.Text)
			}
		}
	}

	if got := pages[1].Slots[1].Caption; got != "secret.key (8/8)" {
		t.Errorf("expected caption %q, got %q", "secret.key (8/8)", got)
	}
	if pages[0].Footer != "Page 1" || pages[1].Footer != "Page 2" {
		t.Errorf("unexpected footers %q, %q", pages[0].Footer, pages[1].Footer)
	}
}

func TestPlan_ExactlyFullPage(t *testing.T) {
	pages, err := Plan(makeChunks(t, 6), DefaultGrid(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if len(pages[0].Slots) != 6 {
		t.Errorf("expected 6 slots, got %d", len(pages[0].Slots))
	}
}

func TestPlan_EmptyChunks(t *testing.T) {
	pages, err := Plan(nil, DefaultGrid(), "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 || len(pages[0].Slots) != 0 {
		t.Fatalf("expected one empty page, got %d pages", len(pages))
	}
}

func TestPlan_EmptyGrid(t *testing.T) {
	_, err := Plan(makeChunks(t, 2), Grid{}, "a")
	if !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("expected ErrEmptyGrid, got %v", err)
	}
}

func TestPlan_CustomGrid(t *testing.T) {
	grid := Grid{Positions: []Position{{X: 1, Y: 1}, {X: 2, Y: 2}}}
	pages, err := Plan(makeChunks(t, 5), grid, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if len(pages[2].Slots) != 1 {
		t.Errorf("expected 1 slot on last page, got %d", len(pages[2].Slots))
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"notes.txt":             "notes.txt",
		"/tmp/x/notes.txt":      "notes.txt",
		`C:\Users\me\notes.txt`: "notes.txt",
	}
	for in, want := range cases {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q): expected %q, got %q", in, want, got)
		}
	}
}
