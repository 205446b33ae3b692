// Package rendering produces projection images for generated geometry. With
// no real geometry backend available it emits deterministic placeholder
// frames so downstream multimodal review has a stable input shape.
package rendering

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/freecad-agent/internal/config"
)

// Result is one produced projection image.
type Result struct {
	View      string
	ImagePath string
}

// Renderer writes one image per requested view. Rendering never fails a run:
// a view that cannot be produced is skipped with a warning and the remaining
// views are returned.
type Renderer struct {
	cfg    config.RendererConfig
	logger *slog.Logger
}

// NewRenderer creates a Renderer with the configured dimensions and views.
func NewRenderer(cfg config.RendererConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// Render produces the requested views for one iteration into dir, named
// NN_<view>.png. Views render concurrently; result order follows the
// requested view order regardless of completion order.
func (r *Renderer) Render(ctx context.Context, dir string, iteration int, views []string) []Result {
	if len(views) == 0 {
		views = r.cfg.Views
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.logger.Warn("failed to create render directory, skipping renders", "dir", dir, "error", err)
		return nil
	}

	produced := make([]*Result, len(views))
	g, gCtx := errgroup.WithContext(ctx)
	for i, view := range views {
		i, view := i, view
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			path := filepath.Join(dir, fmt.Sprintf("%02d_%s.png", iteration, view))
			if err := r.drawPlaceholder(view, iteration, path); err != nil {
				r.logger.Warn("failed to render view, skipping", "view", view, "error", err)
				return nil
			}
			r.logger.Info("rendered view", "view", view, "path", path)
			produced[i] = &Result{View: view, ImagePath: path}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(views))
	for _, result := range produced {
		if result != nil {
			results = append(results, *result)
		}
	}
	return results
}

// drawPlaceholder writes a flat dark frame with a view-specific band so each
// projection is visually distinct yet byte-for-byte reproducible.
func (r *Renderer) drawPlaceholder(view string, iteration int, path string) error {
	width, height := r.cfg.Width, r.cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	background := color.RGBA{R: 8, G: 20, B: 40, A: 255}
	band := bandColor(view)
	bandTop := bandOffset(view, iteration, height)

	for y := 0; y < height; y++ {
		inBand := y >= bandTop && y < bandTop+height/12
		for x := 0; x < width; x++ {
			onBorder := x < 4 || y < 4 || x >= width-4 || y >= height-4
			switch {
			case onBorder:
				img.Set(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
			case inBand:
				img.Set(x, y, band)
			default:
				img.Set(x, y, background)
			}
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func bandColor(view string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(view))
	sum := h.Sum32()
	return color.RGBA{
		R: uint8(80 + sum%120),
		G: uint8(80 + (sum>>8)%120),
		B: uint8(80 + (sum>>16)%120),
		A: 255,
	}
}

func bandOffset(view string, iteration, height int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s/%d", view, iteration)))
	usable := height - height/12 - 8
	if usable <= 0 {
		return 0
	}
	return 4 + int(h.Sum32())%usable
}
