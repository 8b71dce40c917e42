package composite_renderer

import "errors"

var (
	ErrInvalidGeometry = errors.New("invalid stripe geometry")
	ErrCanvasUnready   = errors.New("canvas is not ready")
)
