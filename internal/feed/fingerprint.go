package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// Key builds the cache key for paths. With fingerprint set, the SHA-256 of
// each file's content is included so that a file replaced in place produces
// a different key.
func Key(ctx context.Context, paths types.FeedPaths, fingerprint bool) (types.FeedKey, error) {
	key := types.FeedKey{Paths: paths}
	if !fingerprint {
		return key, nil
	}
	for i, p := range []string{paths.Routes, paths.Trips, paths.StopTimes, paths.Stops} {
		if err := ctx.Err(); err != nil {
			return types.FeedKey{}, err
		}
		sum, err := Fingerprint(p)
		if err != nil {
			return types.FeedKey{}, err
		}
		key.Fingerprints[i] = sum
	}
	return key, nil
}

// Fingerprint returns the hex SHA-256 of the file at path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &types.ParseError{File: path, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PathsIn returns the standard feed file locations inside dir.
func PathsIn(dir string) types.FeedPaths {
	return types.FeedPaths{
		Routes:    filepath.Join(dir, types.RoutesFile),
		Trips:     filepath.Join(dir, types.TripsFile),
		StopTimes: filepath.Join(dir, types.StopTimesFile),
		Stops:     filepath.Join(dir, types.StopsFile),
	}
}
