package llm

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// encodedImage holds one render image prepared for a provider payload.
type encodedImage struct {
	// DataURL is the base64 data URL used by OpenAI-compatible providers.
	DataURL string
	// Format is the bare image format name ("png", "jpeg") used by Gemini.
	Format string
	Data   []byte
}

// encodeImages reads render images from disk. Missing files are skipped with
// a warning so a lost render never fails the surrounding model call.
func encodeImages(paths []string) []encodedImage {
	encoded := make([]encodedImage, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("render image missing, skipping", "path", path, "error", err)
			continue
		}
		format := imageFormat(path)
		encoded = append(encoded, encodedImage{
			DataURL: fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(data)),
			Format:  format,
			Data:    data,
		})
	}
	return encoded
}

func imageFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".webp":
		return "webp"
	default:
		return "png"
	}
}
