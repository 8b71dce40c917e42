package entities

// Orientation tags how an output image should be displayed. Values follow the
// UIImageOrientation naming; ExifValue maps them onto the TIFF/Exif Orientation tag.
type Orientation int

const (
	OrientationUp Orientation = iota
	OrientationDown
	OrientationLeft
	OrientationRight
	OrientationUpMirrored
	OrientationDownMirrored
	OrientationLeftMirrored
	OrientationRightMirrored
)

var exifOrientation = map[Orientation]uint16{
	OrientationUp:            1,
	OrientationUpMirrored:    2,
	OrientationDown:          3,
	OrientationDownMirrored:  4,
	OrientationLeftMirrored:  5,
	OrientationRight:         6,
	OrientationRightMirrored: 7,
	OrientationLeft:          8,
}

// ExifValue returns the Exif Orientation tag value, 1 for unknown orientations.
func (o Orientation) ExifValue() uint16 {
	if v, ok := exifOrientation[o]; ok {
		return v
	}
	return 1
}

// OrientationFromExif is the inverse of ExifValue.
func OrientationFromExif(v uint16) (Orientation, bool) {
	for o, e := range exifOrientation {
		if e == v {
			return o, true
		}
	}
	return OrientationUp, false
}

func (o Orientation) String() string {
	switch o {
	case OrientationUp:
		return "up"
	case OrientationDown:
		return "down"
	case OrientationLeft:
		return "left"
	case OrientationRight:
		return "right"
	case OrientationUpMirrored:
		return "up-mirrored"
	case OrientationDownMirrored:
		return "down-mirrored"
	case OrientationLeftMirrored:
		return "left-mirrored"
	case OrientationRightMirrored:
		return "right-mirrored"
	default:
		return "unknown"
	}
}
