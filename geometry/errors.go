package geometry

import "errors"

// ErrInvalidGeometry is returned for malformed shapes such as a polygon with
// fewer than 3 vertices, a zero length line or an inverted box
var ErrInvalidGeometry = errors.New("invalid geometry")
