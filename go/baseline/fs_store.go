package baseline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/frankbria/iris/go/raster"
	"github.com/frankbria/iris/go/storage"
)

// FSStore keeps baselines in the artifact store under a stable per-test
// prefix. It ignores the ref argument; revision-aware resolution lives in an
// external git-backed implementation.
type FSStore struct {
	manager  *storage.Manager
	testName string
}

func NewFSStore(manager *storage.Manager, testName string) *FSStore {
	return &FSStore{manager: manager, testName: testName}
}

// Resolve implements Store.
func (s *FSStore) Resolve(ctx context.Context, page, device, ref string) (*raster.Image, error) {
	name := storage.ArtifactName(page, device, storage.KindBaseline)
	ok, err := s.manager.ImageExists(ctx, s.testName, name)
	if err != nil {
		return nil, errors.Wrapf(err, "checking baseline for %s/%s", page, device)
	}
	if !ok {
		// A missing baseline is not an error; it triggers bootstrap.
		return nil, nil
	}
	data, err := s.manager.ReadImage(ctx, s.testName, name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading baseline for %s/%s", page, device)
	}
	img, err := raster.DecodePNGBytes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding baseline for %s/%s", page, device)
	}
	return img, nil
}

// Store implements Store.
func (s *FSStore) Store(ctx context.Context, page, device string, img *raster.Image) error {
	_, err := s.manager.SaveRaster(ctx, s.testName,
		storage.ArtifactName(page, device, storage.KindBaseline), img, storage.SaveOptions{AutoOptimize: true})
	return errors.Wrapf(err, "storing baseline for %s/%s", page, device)
}
