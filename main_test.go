package main

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"bracket_stripes/composite_renderer"
	"bracket_stripes/entities"
)

func TestWriteOutput(t *testing.T) {
	img := &composite_renderer.StripedImage{
		Image:       image.NewRGBA(image.Rect(0, 0, 30, 20)),
		Orientation: entities.OrientationRight,
	}
	dir := t.TempDir()

	tests := []struct {
		name       string
		wantWidth  int
		wantHeight int
		decode     func(f *os.File) (image.Config, error)
	}{
		{name: "out.png", wantWidth: 20, wantHeight: 30, decode: func(f *os.File) (image.Config, error) { return png.DecodeConfig(f) }},
		{name: "out.JPG", wantWidth: 30, wantHeight: 20, decode: func(f *os.File) (image.Config, error) { return jpeg.DecodeConfig(f) }},
	}

	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		size, err := writeOutput(img, path, 90)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if size == 0 {
			t.Fatalf("%s: expected a non-empty file", tt.name)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("%s: unexpected error opening: %v", tt.name, err)
		}
		cfg, err := tt.decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s: unexpected decode error: %v", tt.name, err)
		}
		if cfg.Width != tt.wantWidth || cfg.Height != tt.wantHeight {
			t.Fatalf("%s: expected %dx%d, got %dx%d", tt.name, tt.wantWidth, tt.wantHeight, cfg.Width, cfg.Height)
		}
	}

	if _, err := writeOutput(img, filepath.Join(dir, "out.gif"), 90); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if _, err := os.Stat(filepath.Join(dir, "out.gif")); !os.IsNotExist(err) {
		t.Fatalf("expected no file for unsupported extension")
	}
}
