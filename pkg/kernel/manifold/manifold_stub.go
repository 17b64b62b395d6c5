//go:build !manifold

// Package manifold binds the Manifold mesh boolean library as a
// kernel.Kernel. Without the "manifold" build tag New always fails.
package manifold

import (
	"errors"

	"github.com/chazu/dlfl/pkg/kernel"
)

// ErrUnavailable is returned by New in builds without the manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// Available reports whether this build links the Manifold library.
const Available = false

// New always returns ErrUnavailable.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
