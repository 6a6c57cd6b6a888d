// Package capture acquires page screenshots at device viewports.
package capture

import (
	"context"
	"fmt"

	"github.com/frankbria/iris/go/raster"
	"github.com/frankbria/iris/go/types"
)

// Capturer renders a page at a device viewport and returns the screenshot.
// Implementations encapsulate navigation and stabilization (font loading,
// animation settling); the rest of the system only consumes the raster.
type Capturer interface {
	Capture(ctx context.Context, page types.Page, device types.Device) (*raster.Image, error)
	Close() error
}

// Error wraps a capture failure with the task it belongs to. It surfaces as
// a per-task result error, never as a panic out of the runner.
type Error struct {
	Page   string
	Device string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capturing %s on %s: %s", e.Page, e.Device, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
