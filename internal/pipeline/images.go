package pipeline

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/alnah/go-docx2html/internal/htmltree"
)

// ImagesDirName is the images subdirectory of a job output directory and the
// prefix of entries in the image archive.
const ImagesDirName = "images"

// maxNameAttempts bounds retries when a generated name already exists.
const maxNameAttempts = 16

// ExtractedImage is one embedded image emitted by a raw converter.
type ExtractedImage struct {
	Key         string // reference used as img src in the raw HTML
	Data        []byte
	ContentType string
	Filename    string // assigned when written
}

// ImageHandler receives each embedded image during raw conversion and
// returns the value to place in the img src attribute.
type ImageHandler func(img *ExtractedImage) (string, error)

// ImageMaterializer writes embedded images into a job's images directory
// and records the URL each reference key resolves to.
type ImageMaterializer struct {
	Dir       string // <output>/images
	URLPrefix string // e.g. /media/output/<job>/images/

	// Prefix starts every written file name. Defaults to "image_".
	Prefix string

	// NameFunc returns a random name suffix. Defaults to 8 hex characters.
	NameFunc func() string

	urls  map[string]string
	names []string
}

// NewImageMaterializer creates a materializer for one job.
func NewImageMaterializer(dir, urlPrefix string) *ImageMaterializer {
	return &ImageMaterializer{Dir: dir, URLPrefix: urlPrefix}
}

// Handle writes img and returns its public URL. A key seen before returns the
// URL already assigned without writing a second file.
func (m *ImageMaterializer) Handle(img *ExtractedImage) (string, error) {
	if u, ok := m.urls[img.Key]; ok {
		return u, nil
	}
	if err := m.ensureDir(); err != nil {
		return "", err
	}

	ext, err := imageExtension(img.ContentType, img.Data)
	if err != nil {
		return "", err
	}

	name, err := m.write(ext, img.Data)
	if err != nil {
		return "", err
	}
	img.Filename = name

	u := m.url(name)
	if m.urls == nil {
		m.urls = make(map[string]string)
	}
	m.urls[img.Key] = u
	m.names = append(m.names, name)
	return u, nil
}

// Materialize writes every image and returns the key-to-URL mapping.
// On any failure it returns a nil mapping and the error.
func (m *ImageMaterializer) Materialize(images []ExtractedImage) (map[string]string, error) {
	for i := range images {
		if _, err := m.Handle(&images[i]); err != nil {
			return nil, err
		}
	}
	return m.Mapping(), nil
}

// Mapping returns a copy of the key-to-URL mapping recorded so far.
func (m *ImageMaterializer) Mapping() map[string]string {
	out := make(map[string]string, len(m.urls))
	for k, v := range m.urls {
		out[k] = v
	}
	return out
}

// Filenames returns the names of the files written by this materializer,
// in write order. Files already in Dir from earlier runs are not included.
func (m *ImageMaterializer) Filenames() []string {
	return slices.Clone(m.names)
}

// Count returns the number of distinct images written.
func (m *ImageMaterializer) Count() int {
	return len(m.urls)
}

// ensureDir creates the images directory. Safe to call repeatedly.
func (m *ImageMaterializer) ensureDir() error {
	if err := os.MkdirAll(m.Dir, 0o750); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	return nil
}

// DefaultImagePrefix names images extracted from documents.
const DefaultImagePrefix = "image_"

// write stores data under a fresh <prefix><suffix><ext> name.
func (m *ImageMaterializer) write(ext string, data []byte) (string, error) {
	for range maxNameAttempts {
		name := m.prefix() + m.suffix() + ext
		p := filepath.Join(m.Dir, name)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) // #nosec G302 -- served as static media
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrOutputDir, err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("%w: %v", ErrOutputDir, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("%w: %v", ErrOutputDir, cerr)
		}
		return name, nil
	}
	return "", fmt.Errorf("%w: no free image name in %s", ErrOutputDir, m.Dir)
}

func (m *ImageMaterializer) prefix() string {
	if m.Prefix != "" {
		return m.Prefix
	}
	return DefaultImagePrefix
}

func (m *ImageMaterializer) suffix() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return RandomSuffix()
}

func (m *ImageMaterializer) url(name string) string {
	prefix := m.URLPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + name
}

// RandomSuffix returns 8 random hex characters.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// JobImagesURL returns the URL prefix of a job's images directory.
func JobImagesURL(mediaURL, jobID string) string {
	if strings.Contains(mediaURL, "://") {
		return strings.TrimSuffix(mediaURL, "/") + "/output/" + jobID + "/" + ImagesDirName + "/"
	}
	return path.Join("/", mediaURL, "output", jobID, ImagesDirName) + "/"
}

// ---------------------------------------------------------------------------
// Extension inference
// ---------------------------------------------------------------------------

// fallbackExt is used for image types without a known extension.
const fallbackExt = ".jpg"

var imageExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/pjpeg":   ".jpg",
	"image/gif":     ".gif",
	"image/bmp":     ".bmp",
	"image/x-bmp":   ".bmp",
	"image/tiff":    ".tiff",
	"image/svg+xml": ".svg",
	"image/webp":    ".webp",
	"image/x-emf":   ".emf",
	"image/emf":     ".emf",
	"image/x-wmf":   ".wmf",
	"image/wmf":     ".wmf",
	"image/x-icon":  ".ico",
}

// imageExtension derives a file extension from a declared content type.
// Missing or generic types are sniffed from data; non-image content fails.
func imageExtension(contentType string, data []byte) (string, error) {
	ct := mediaType(contentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = mediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ct)
	}
	if ext, ok := imageExtensions[ct]; ok {
		return ext, nil
	}
	return fallbackExt, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// ---------------------------------------------------------------------------
// Source rewriting
// ---------------------------------------------------------------------------

// RewriteImageSources replaces the src of every img whose src equals a key
// of mapping. Returns the number of rewritten elements.
func RewriteImageSources(root *htmltree.Element, mapping map[string]string) int {
	if len(mapping) == 0 {
		return 0
	}
	count := 0
	for _, img := range htmltree.FindAll(root, "img") {
		src, ok := img.Attr("src")
		if !ok {
			continue
		}
		if u, ok := mapping[src]; ok {
			img.SetAttr("src", u)
			count++
		}
	}
	return count
}
