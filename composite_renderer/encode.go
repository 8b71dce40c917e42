package composite_renderer

import (
	"bytes"
	"image/jpeg"
	"image/png"
	"io"

	jseg "github.com/garyhouston/jpegsegs"

	"bracket_stripes/exif"
)

// EncodePNG writes the image with its orientation baked into the pixels.
func (s *StripedImage) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.Oriented())
}

// EncodeJPEG writes the stored pixels and records the orientation in an Exif
// APP1 segment placed right after SOI.
func (s *StripedImage) EncodeJPEG(w io.Writer, quality int) error {
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, s.Image, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}

	reader := bytes.NewReader(encoded.Bytes())
	scanner, err := jseg.NewScanner(reader)
	if err != nil {
		return err
	}
	dumper, err := jseg.NewDumper(w)
	if err != nil {
		return err
	}
	if err := dumper.Dump(jseg.APP0+1, exif.OrientationSegment(s.Orientation)); err != nil {
		return err
	}

	for {
		marker, buf, err := scanner.Scan()
		if err != nil {
			return err
		}
		if marker == jseg.APP0+1 && exif.IsExif(buf) {
			continue
		}
		if err := dumper.Dump(marker, buf); err != nil {
			return err
		}
		if marker == jseg.SOS {
			break
		}
	}

	// Entropy-coded data and EOI follow the scan header unchanged.
	_, err = io.Copy(w, reader)
	return err
}
