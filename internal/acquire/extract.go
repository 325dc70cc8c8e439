package acquire

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// extract copies the feed files out of the zip archive at src into dir. Entries
// are matched by base name so feeds packed inside a folder still work; nothing
// outside the four feed files is written. Returns the number of files written.
func extract(src, dir string) (int, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadArchive, err)
	}
	defer zr.Close()

	wanted := make(map[string]bool, len(types.FeedFileNames))
	for _, name := range types.FeedFileNames {
		wanted[name] = true
	}

	// The first entry with a given base name wins.
	found := make(map[string]*zip.File, len(wanted))
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		base := path.Base(zf.Name)
		if wanted[base] && found[base] == nil {
			found[base] = zf
		}
	}

	var missing []string
	for _, name := range types.FeedFileNames {
		if found[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("%w: %v", ErrArchive, missing)
	}

	for _, name := range types.FeedFileNames {
		if err := extractFile(found[name], filepath.Join(dir, name)); err != nil {
			return 0, fmt.Errorf("extract %s: %w", name, err)
		}
	}
	return len(found), nil
}

// extractFile writes one archive entry to dst using the temp-file then rename
// pattern.
func extractFile(zf *zip.File, dst string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".extract-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
