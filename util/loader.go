// Package util - Snapshot loading for offline pipeline runs.
package util

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Snapshot is one decoded still image from a capture directory.
type Snapshot struct {
	// Path is the path of the source file.
	Path string
	// Image is the decoded image.
	Image image.Image
	// Frame is the frame number parsed from the file name.
	Frame int
}

// LoadSnapshotDir reads every frame-N.jpg/.jpeg/.png file from a directory
// and returns the decoded images ordered by frame number. Files that do not
// follow the frame-N naming are skipped.
//
// Arguments:
//   - dir: Directory containing captured snapshots.
//
// Returns:
//   - []Snapshot: Decoded snapshots sorted by frame number.
//   - error: Directory read or image decode failures.
func LoadSnapshotDir(dir string) ([]Snapshot, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading snapshot directory %s", dir)
	}

	var snapshots []Snapshot
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(file.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png":
		default:
			continue
		}

		base := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		if !strings.HasPrefix(base, "frame-") {
			continue
		}
		frame, parseErr := strconv.Atoi(strings.TrimPrefix(base, "frame-"))
		if parseErr != nil {
			continue
		}

		path := filepath.Join(dir, file.Name())
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, errors.Wrapf(openErr, "opening %s", path)
		}
		img, _, decodeErr := image.Decode(f)
		f.Close()
		if decodeErr != nil {
			return nil, errors.Wrapf(decodeErr, "decoding %s", path)
		}

		snapshots = append(snapshots, Snapshot{Path: path, Image: img, Frame: frame})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Frame < snapshots[j].Frame
	})
	return snapshots, nil
}
