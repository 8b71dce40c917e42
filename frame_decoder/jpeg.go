package frame_decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"log"

	jseg "github.com/garyhouston/jpegsegs"

	"bracket_stripes/entities"
	"bracket_stripes/exif"
)

type jpegHeader struct {
	width       int
	height      int
	orientation entities.Orientation
}

// decodeJPEG is a one-shot decode: the payload is read once into an 8 bit per
// channel image and nothing about it is retained afterwards.
func decodeJPEG(data []byte) (*DecodedFrame, error) {
	if len(data) < jseg.HeaderSize {
		return nil, fmt.Errorf("%w: jpeg payload of %d bytes", ErrDecodeFailure, len(data))
	}

	header, err := scanJPEGHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	size := img.Bounds().Size()
	if size.X != header.width || size.Y != header.height {
		return nil, fmt.Errorf("%w: frame header says %dx%d, decoded %dx%d",
			ErrDecodeFailure, header.width, header.height, size.X, size.Y)
	}

	return &DecodedFrame{Image: img, Orientation: header.orientation}, nil
}

// scanJPEGHeader walks the marker segments up to the start of scan, picking
// up the frame dimensions and the Exif orientation if there is one.
// The scanner slices segments by their declared length without checking it,
// so a length field below 2 panics inside Scan.
func scanJPEGHeader(data []byte) (header *jpegHeader, err error) {
	defer func() {
		if r := recover(); r != nil {
			header, err = nil, fmt.Errorf("malformed segment: %v", r)
		}
	}()

	scanner, err := jseg.NewScanner(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	header = &jpegHeader{orientation: entities.OrientationUp}
	for {
		marker, buf, err := scanner.Scan()
		if err != nil {
			return nil, err
		}

		switch {
		case marker == jseg.APP0+1 && exif.IsExif(buf):
			o, err := exif.ReadOrientation(buf)
			if err != nil && !errors.Is(err, exif.ErrNoOrientation) {
				log.Printf("Ignoring unreadable exif segment: %v", err)
				continue
			}
			header.orientation = o
		case isStartOfFrame(marker):
			if len(buf) < 5 {
				return nil, errors.New("short SOF segment")
			}
			header.height = int(buf[1])<<8 | int(buf[2])
			header.width = int(buf[3])<<8 | int(buf[4])
		case marker == jseg.SOS:
			if header.width == 0 || header.height == 0 {
				return nil, errors.New("start of scan without a frame header")
			}
			return header, nil
		case marker == jseg.EOI:
			return nil, errors.New("end of image before start of scan")
		}
	}
}

func isStartOfFrame(marker jseg.Marker) bool {
	if marker < jseg.SOF0 || marker > jseg.SOF0+15 {
		return false
	}
	return marker != jseg.DHT && marker != jseg.JPG && marker != jseg.DAC
}
