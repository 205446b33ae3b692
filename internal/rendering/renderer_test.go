package rendering

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/freecad-agent/internal/config"
)

func testRenderer() *Renderer {
	return NewRenderer(config.RendererConfig{
		Views:  []string{"isometric", "front", "right", "top"},
		Width:  320,
		Height: 180,
	}, nil)
}

func TestRenderProducesOneImagePerView(t *testing.T) {
	renderer := testRenderer()
	dir := t.TempDir()

	results := renderer.Render(context.Background(), dir, 0, nil)

	require.Len(t, results, 4)
	assert.Equal(t, "isometric", results[0].View)
	assert.Equal(t, "top", results[3].View)
	for _, result := range results {
		info, err := os.Stat(result.ImagePath)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Equal(t, filepath.Join(dir, "00_isometric.png"), results[0].ImagePath)
}

func TestRenderHonorsRequestedViews(t *testing.T) {
	renderer := testRenderer()

	results := renderer.Render(context.Background(), t.TempDir(), 2, []string{"front", "back"})

	require.Len(t, results, 2)
	assert.Equal(t, "front", results[0].View)
	assert.Equal(t, "back", results[1].View)
	assert.Contains(t, results[0].ImagePath, "02_front.png")
}

func TestRenderDimensionsMatchConfig(t *testing.T) {
	renderer := testRenderer()
	results := renderer.Render(context.Background(), t.TempDir(), 0, []string{"front"})
	require.Len(t, results, 1)

	file, err := os.Open(results[0].ImagePath)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 180, img.Bounds().Dy())
}

func TestRenderIsDeterministic(t *testing.T) {
	renderer := testRenderer()

	first := renderer.Render(context.Background(), t.TempDir(), 1, []string{"front", "top"})
	second := renderer.Render(context.Background(), t.TempDir(), 1, []string{"front", "top"})
	require.Len(t, first, 2)
	require.Len(t, second, 2)

	for i := range first {
		a, err := os.ReadFile(first[i].ImagePath)
		require.NoError(t, err)
		b, err := os.ReadFile(second[i].ImagePath)
		require.NoError(t, err)
		assert.Equal(t, a, b, "view %s must render identically", first[i].View)
	}
}

func TestRenderNeverFails(t *testing.T) {
	renderer := testRenderer()

	// An unwritable directory downgrades to an empty result set, not an error.
	results := renderer.Render(context.Background(), string([]byte{0}), 0, nil)
	assert.Empty(t, results)
}
