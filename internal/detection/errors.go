package detection

import "errors"

var (
	// ErrNoFaces means an enrollment image contained no detectable face.
	ErrNoFaces = errors.New("no faces detected")

	// ErrMultipleFaces means an enrollment image contained more than one
	// face, so it cannot represent a single identity.
	ErrMultipleFaces = errors.New("more than one face detected")
)
