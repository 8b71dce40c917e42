// Package exif reads and writes the one Exif field the renderer cares about:
// the Orientation tag of the 0th IFD, carried in a JPEG APP1 segment.
package exif

import (
	"bytes"
	"encoding/binary"
	"errors"

	tiff "github.com/garyhouston/tiff66"

	"bracket_stripes/entities"
)

// Header is the identifier that starts every Exif APP1 segment.
var Header = []byte("Exif\x00\x00")

const (
	ifdEntrySize = 12
	// header, entry count, one entry, next IFD offset
	orientationTIFFSize = tiff.HeaderSize + 2 + ifdEntrySize + 4
)

var ErrNoOrientation = errors.New("no orientation tag")

// OrientationSegment returns an APP1 payload holding a single Orientation entry.
func OrientationSegment(o entities.Orientation) []byte {
	buf := make([]byte, len(Header)+orientationTIFFSize)
	copy(buf, Header)

	order := binary.BigEndian
	t := buf[len(Header):]
	tiff.PutHeader(t, order, tiff.HeaderSize)

	pos := uint32(tiff.HeaderSize)
	order.PutUint16(t[pos:], 1)
	pos += 2
	order.PutUint16(t[pos:], uint16(tiff.Orientation))
	order.PutUint16(t[pos+2:], uint16(tiff.SHORT))
	order.PutUint32(t[pos+4:], 1)
	order.PutUint16(t[pos+8:], o.ExifValue())
	pos += ifdEntrySize
	order.PutUint32(t[pos:], 0)

	return buf
}

// IsExif reports whether an APP1 payload is Exif rather than XMP or vendor data.
func IsExif(app1 []byte) bool {
	return bytes.HasPrefix(app1, Header)
}

// ReadOrientation extracts the Orientation tag from an Exif APP1 payload.
func ReadOrientation(app1 []byte) (entities.Orientation, error) {
	if !IsExif(app1) {
		return entities.OrientationUp, errors.New("not an exif segment")
	}
	t := app1[len(Header):]

	valid, order, ifdPos := tiff.GetHeader(t)
	if !valid {
		return entities.OrientationUp, errors.New("invalid tiff header")
	}
	if uint64(ifdPos)+2 > uint64(len(t)) {
		return entities.OrientationUp, errors.New("ifd out of range")
	}

	count := int(order.Uint16(t[ifdPos:]))
	pos := int(ifdPos) + 2
	for i := 0; i < count; i++ {
		if pos+ifdEntrySize > len(t) {
			return entities.OrientationUp, errors.New("truncated ifd")
		}
		entry := t[pos : pos+ifdEntrySize]
		if tiff.Tag(order.Uint16(entry)) == tiff.Orientation && tiff.Type(order.Uint16(entry[2:])) == tiff.SHORT {
			o, ok := entities.OrientationFromExif(order.Uint16(entry[8:]))
			if !ok {
				return entities.OrientationUp, errors.New("orientation value out of range")
			}
			return o, nil
		}
		pos += ifdEntrySize
	}

	return entities.OrientationUp, ErrNoOrientation
}
