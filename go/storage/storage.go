// Package storage persists baseline, current and diff artifacts.
//
// Artifact keys are deterministic per (testName, page, device, kind):
// repeated runs overwrite current and diff images in place, while baseline
// keys are only ever written through an explicit baseline action, never as
// a side effect of comparing.
package storage

import (
	"context"
	"regexp"
	"strings"

	"github.com/frankbria/iris/go/raster"
)

// Kind discriminates the artifact flavors stored per comparison.
type Kind string

const (
	KindBaseline Kind = "baseline"
	KindCurrent  Kind = "current"
	KindDiff     Kind = "diff"
)

// SaveOptions controls persistence of a single artifact.
type SaveOptions struct {
	// AutoOptimize recompresses the image without changing its pixel
	// dimensions or format family. The pixels are untouched; only the
	// encoding gets smaller.
	AutoOptimize bool
}

// SavedArtifact describes a persisted artifact.
type SavedArtifact struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Format string `json:"format"`
}

// Backend abstracts the byte store. Writes to distinct keys never contend,
// so per-task artifact writes need no coordination.
type Backend interface {
	Write(ctx context.Context, key string, data []byte) (SavedArtifact, error)
	Read(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether a key holds data, without reading it.
	Exists(ctx context.Context, key string) (bool, error)
	// Path maps a key to the address a Write of it would report. Keys are
	// deterministic, so the path is known before the data lands; async
	// writers rely on that.
	Path(key string) string
}

// Manager persists images through a Backend, applying optional
// recompression.
type Manager struct {
	backend Backend
}

func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// SaveImage persists PNG data under testName/imageName.
func (m *Manager) SaveImage(ctx context.Context, testName, imageName string, data []byte, opts SaveOptions) (SavedArtifact, error) {
	if opts.AutoOptimize {
		if optimized, err := recompressPNG(data); err == nil && len(optimized) < len(data) {
			data = optimized
		}
	}
	return m.backend.Write(ctx, testName+"/"+imageName, data)
}

// SaveRaster encodes an Image to PNG and persists it.
func (m *Manager) SaveRaster(ctx context.Context, testName, imageName string, img *raster.Image, opts SaveOptions) (SavedArtifact, error) {
	data, err := img.PNGBytes()
	if err != nil {
		return SavedArtifact{}, err
	}
	return m.SaveImage(ctx, testName, imageName, data, opts)
}

// ReadImage loads a previously saved artifact.
func (m *Manager) ReadImage(ctx context.Context, testName, imageName string) ([]byte, error) {
	return m.backend.Read(ctx, testName+"/"+imageName)
}

// ImageExists reports whether an artifact has been saved.
func (m *Manager) ImageExists(ctx context.Context, testName, imageName string) (bool, error) {
	return m.backend.Exists(ctx, testName+"/"+imageName)
}

// ImagePath returns the address a saved artifact has (or will have, for a
// write still in flight).
func (m *Manager) ImagePath(testName, imageName string) string {
	return m.backend.Path(testName + "/" + imageName)
}

// ArtifactName returns the deterministic image name for a comparison
// artifact, e.g. "home__iphone-15__diff.png".
func ArtifactName(page, device string, kind Kind) string {
	return Sanitize(page) + "__" + Sanitize(device) + "__" + string(kind) + ".png"
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Sanitize maps an arbitrary page or device name onto a path-safe token.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
