package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beucismis/backupill/internal/chunker"
)

// Position is the lower-left corner of a code on the page, in centimetres
// measured from the bottom-left corner of an A4 sheet.
type Position struct {
	X float64
	Y float64
}

// Grid is the fixed set of code positions on every page, in fill order.
type Grid struct {
	Positions []Position
}

// SlotsPerPage is the page capacity.
func (g Grid) SlotsPerPage() int {
	return len(g.Positions)
}

// DefaultGrid is two columns by three rows, filled left to right, top to bottom.
func DefaultGrid() Grid {
	return Grid{Positions: []Position{
		{X: 1.5, Y: 18.7}, {X: 11, Y: 18.7},
		{X: 1.5, Y: 10}, {X: 11, Y: 10},
		{X: 1.5, Y: 1.2}, {X: 11, Y: 1.2},
	}}
}

// Slot binds one chunk to a position.
type Slot struct {
	Position Position
	Caption  string
	Index    int // 1-based position among all chunks
	Total    int
	Text     []byte // tagged form, never the bare payload
}

// Page is a finalized page of slots.
type Page struct {
	Number int // 0-based
	Footer string
	Slots  []Slot
}

// ErrEmptyGrid is returned when the grid has no positions.
var ErrEmptyGrid = errors.New("layout grid has no positions")

// Plan assigns chunks to slots in order: chunk i lands in slot i mod n of page
// i div n, where n is the grid's slot count. An empty chunk list yields a
// single empty page.
func Plan(chunks []chunker.Chunk, grid Grid, sourceName string) ([]Page, error) {
	perPage := grid.SlotsPerPage()
	if perPage == 0 {
		return nil, ErrEmptyGrid
	}

	name := BaseName(sourceName)
	total := len(chunks)

	var pages []Page
	current := newPage(0, perPage)

	for i, c := range chunks {
		if len(current.Slots) >= perPage {
			pages = append(pages, current)
			current = newPage(current.Number+1, perPage)
		}
		current.Slots = append(current.Slots, Slot{
			Position: grid.Positions[len(current.Slots)],
			Caption:  Caption(name, i+1, total),
			Index:    i + 1,
			Total:    total,
			Text:     c.Tagged(),
		})
	}

	return append(pages, current), nil
}

// PageCount is the number of pages Plan produces for n chunks.
func PageCount(n, perPage int) int {
	if n == 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// Caption labels a printed code, e.g. "notes.txt (3/13)".
func Caption(name string, index, total int) string {
	return fmt.Sprintf("%s (%d/%d)", name, index, total)
}

// Footer labels a page by its 0-based number.
func Footer(number int) string {
	return fmt.Sprintf("Page %d", number+1)
}

// BaseName strips directories from a source path.
func BaseName(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return filepath.Base(filepath.FromSlash(path))
}

func newPage(number, perPage int) Page {
	return Page{
		Number: number,
		Footer: Footer(number),
		Slots:  make([]Slot, 0, perPage),
	}
}
