package pipeline

import (
	"archive/zip"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
)

// BuildImageArchive zips the named files of imagesDir into zipPath under
// the images/ prefix, sorted by name. Other files in imagesDir are left out,
// so images from earlier conversions or editor uploads never reach the
// archive. No names yields a valid empty archive. Returns the number of
// entries written.
func BuildImageArchive(imagesDir, zipPath string, names []string) (int, error) {
	names = slices.Clone(names)
	slices.Sort(names)
	names = slices.Compact(names)
	for _, name := range names {
		if name == "" || name != filepath.Base(name) {
			return 0, fmt.Errorf("%w: invalid image name %q", ErrWriteArchive, name)
		}
	}

	f, err := os.Create(zipPath) // #nosec G304 -- path built from job directory
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteArchive, err)
	}

	zw := zip.NewWriter(f)
	for _, name := range names {
		if err := addFile(zw, filepath.Join(imagesDir, name), path.Join(ImagesDirName, name)); err != nil {
			_ = zw.Close()
			_ = f.Close()
			return 0, fmt.Errorf("%w: %v", ErrWriteArchive, err)
		}
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("%w: %v", ErrWriteArchive, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteArchive, err)
	}
	return len(names), nil
}

func addFile(zw *zip.Writer, src, name string) error {
	data, err := os.ReadFile(src) // #nosec G304 -- listed from the images directory
	if err != nil {
		return err
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
