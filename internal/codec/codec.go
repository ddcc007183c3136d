package codec

import (
	"context"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer turns the tagged text of one chunk into an optical-code image.
type Renderer interface {
	Render(text []byte) ([]byte, error)
}

// QRRenderer renders PNG QR codes. The version is chosen to fit the text.
type QRRenderer struct {
	Level      qrcode.RecoveryLevel
	ModuleSize int  // pixels per module
	NoBorder   bool // drop the 4-module quiet zone
}

// NewQRRenderer returns the settings the printed backups use: error
// correction L, quiet zone on, 10 pixels per module.
func NewQRRenderer() *QRRenderer {
	return &QRRenderer{
		Level:      qrcode.Low,
		ModuleSize: 10,
	}
}

func (r *QRRenderer) Render(text []byte) ([]byte, error) {
	q, err := qrcode.New(string(text), r.Level)
	if err != nil {
		return nil, fmt.Errorf("build qr code: %w", err)
	}
	q.DisableBorder = r.NoBorder

	size := r.ModuleSize
	if size <= 0 {
		size = 10
	}
	// A negative size asks for size pixels per module.
	png, err := q.PNG(-size)
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return png, nil
}

// RenderAll renders texts with at most workers concurrent calls and returns
// the images in input order. The first failure cancels outstanding work.
// stats may be nil.
func RenderAll(ctx context.Context, r Renderer, texts [][]byte, workers int, stats *Stats) ([][]byte, error) {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type renderResult struct {
		img []byte
		err error
		idx int
	}
	results := make(chan renderResult, len(texts))
	sem := make(chan struct{}, workers)

	launched := 0
	for i, text := range texts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		launched++
		go func(i int, text []byte) {
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results <- renderResult{err: err, idx: i}
				return
			}
			start := time.Now()
			img, err := r.Render(text)
			if stats != nil {
				stats.Record(len(text), time.Since(start).Milliseconds())
			}
			results <- renderResult{img: img, err: err, idx: i}
		}(i, text)
	}

	images := make([][]byte, len(texts))
	var firstErr error
	for range launched {
		res := <-results
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("render chunk %d: %w", res.idx+1, res.err)
				cancel()
			}
			continue
		}
		images[res.idx] = res.img
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return images, nil
}
