package artifacts

import (
	"context"
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/AlekLefebvre/pngme/internal/vpath"
)

// ScanRegistryImage streams the layers of a remote image straight from the
// registry and emits every PNG container found in the layer filesystems.
// Nothing is pulled to disk. Credentials come from the ambient Docker
// keychain (~/.docker/config.json) when the registry requires them. The
// context bounds the network fetches; the limits bound the decompression.
func ScanRegistryImage(ctx context.Context, imageRef string, limits Limits, emit func(path string, data []byte), stats *Stats) error {
	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return fmt.Errorf("invalid image reference %q: %w", imageRef, err)
	}

	// Manifest only; layer blobs are fetched lazily, one at a time, below.
	img, err := remote.Image(ref, remote.WithContext(ctx), remote.WithAuthFromKeychain(authn.DefaultKeychain))
	if err != nil {
		return fmt.Errorf("fetch manifest for %q: %w", imageRef, err)
	}
	layers, err := img.Layers()
	if err != nil {
		return fmt.Errorf("list layers of %q: %w", imageRef, err)
	}

	deadline := artifactDeadline(limits)
	var decompressed int64
	var entries int

	for _, layer := range layers {
		if ctx.Err() != nil {
			stats.add("time")
			return nil
		}
		if reason := limitsExceededReason(limits, decompressed, entries, 0, deadline); reason != "" {
			stats.add(reason)
			return nil
		}
		digest, err := layer.Digest()
		if err != nil {
			continue
		}
		rc, err := layer.Uncompressed()
		if err != nil {
			return fmt.Errorf("open layer %s of %q: %w", digest, imageRef, err)
		}
		// Findings inside the layer surface as image:tag::sha256:digest/path.
		err = scanTarReaderJoin(vpath.Join(imageRef, digest.String()), "/", limits, &decompressed, &entries, 1, deadline, emit, rc, stats)
		safeClose(rc)
		if err != nil {
			return err
		}
	}
	return nil
}
