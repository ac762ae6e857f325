// Package legacy reads the single global watermark written by the previous
// file-based deployment. It is never written.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

type Watermark struct {
	path string
}

func NewWatermark(path string) *Watermark { return &Watermark{path: path} }

type watermarkFile struct {
	LastReadTS string `json:"lastReadTs"`
}

// LastReadTS returns the stored timestamp, or "" when the file does not exist.
func (w *Watermark) LastReadTS(_ context.Context) (string, error) {
	if w == nil || w.path == "" {
		return "", nil
	}
	b, err := os.ReadFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read legacy watermark: %w", err)
	}
	var f watermarkFile
	if err := json.Unmarshal(b, &f); err != nil {
		return "", fmt.Errorf("decode legacy watermark %s: %w", w.path, err)
	}
	return f.LastReadTS, nil
}
