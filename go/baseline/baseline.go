// Package baseline resolves and stores accepted-reference screenshots.
package baseline

import (
	"context"

	"github.com/frankbria/iris/go/raster"
)

// Store is the baseline collaborator. Implementations may be backed by the
// filesystem, object storage, or a git-integrated reference resolver.
type Store interface {
	// Resolve returns the baseline image for (page, device) at ref, or
	// (nil, nil) when none exists. ref is an opaque revision hint;
	// implementations without revision support ignore it.
	Resolve(ctx context.Context, page, device, ref string) (*raster.Image, error)

	// Store persists img as the new baseline for (page, device). This is
	// the only way a baseline is ever written.
	Store(ctx context.Context, page, device string, img *raster.Image) error
}
