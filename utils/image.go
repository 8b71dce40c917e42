package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
)

func GetDataFromUrl(url string) ([]byte, error) {
	response, err := http.Get(url)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %v fetching %v", response.Status, url)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// LoadImage decodes a JPEG or PNG scene from a local path or an http(s) URL.
func LoadImage(location string) (image.Image, error) {
	var data []byte
	var err error

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		data, err = GetDataFromUrl(location)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %v: %w", location, err)
	}

	return img, nil
}

// GradientScene is a synthetic test scene: a horizontal hue sweep over a
// vertical brightness ramp, so every stripe of a composite shows something.
func GradientScene(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		v := 64 + 128*y/max(height-1, 1)
		for x := 0; x < width; x++ {
			t := 255 * x / max(width-1, 1)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(t * v / 255),
				G: uint8((255 - t) * v / 255),
				B: uint8(v / 2),
				A: 0xff,
			})
		}
	}
	return img
}
