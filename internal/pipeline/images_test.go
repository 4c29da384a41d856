package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// sequenceNames returns a NameFunc yielding the given suffixes in order.
func sequenceNames(names ...string) func() string {
	i := 0
	return func() string {
		n := names[i%len(names)]
		i++
		return n
	}
}

// ---------------------------------------------------------------------------
// TestImageMaterializer_Handle
// ---------------------------------------------------------------------------

func TestImageMaterializer_Handle(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out", "images")
	m := NewImageMaterializer(dir, JobImagesURL("/media/", "J"))
	m.NameFunc = sequenceNames("ab12cd34")

	img := &ExtractedImage{Key: "rId5", Data: pngHeader, ContentType: "image/png"}
	got, err := m.Handle(img)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "/media/output/J/images/image_ab12cd34.png"
	if got != want {
		t.Errorf("Handle() = %q, want %q", got, want)
	}
	if img.Filename != "image_ab12cd34.png" {
		t.Errorf("Filename = %q, want %q", img.Filename, "image_ab12cd34.png")
	}
	data, err := os.ReadFile(filepath.Join(dir, "image_ab12cd34.png"))
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if string(data) != string(pngHeader) {
		t.Error("written bytes differ from input")
	}
}

func TestImageMaterializer_SameKeyWrittenOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := NewImageMaterializer(dir, "/m/")

	first, err := m.Handle(&ExtractedImage{Key: "rId1", Data: pngHeader, ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	second, err := m.Handle(&ExtractedImage{Key: "rId1", Data: pngHeader, ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if first != second {
		t.Errorf("same key gave %q then %q", first, second)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || m.Count() != 1 {
		t.Errorf("files = %d, Count() = %d, want 1 and 1", len(entries), m.Count())
	}
}

func TestImageMaterializer_NameCollisionRetried(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "image_taken000.png"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewImageMaterializer(dir, "/m/")
	m.NameFunc = sequenceNames("taken000", "free0000")

	got, err := m.Handle(&ExtractedImage{Key: "k", Data: pngHeader, ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got != "/m/image_free0000.png" {
		t.Errorf("Handle() = %q, want %q", got, "/m/image_free0000.png")
	}
	if diff := cmp.Diff([]string{"image_free0000.png"}, m.Filenames()); diff != "" {
		t.Errorf("Filenames() mismatch (-want +got):\n%s", diff)
	}
	old, _ := os.ReadFile(filepath.Join(dir, "image_taken000.png"))
	if string(old) != "old" {
		t.Error("existing file was overwritten")
	}
}

func TestImageMaterializer_DefaultNames(t *testing.T) {
	t.Parallel()

	m := NewImageMaterializer(t.TempDir(), "/m/")
	got, err := m.Handle(&ExtractedImage{Key: "k", Data: pngHeader, ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !regexp.MustCompile(`^/m/image_[0-9a-f]{8}\.png$`).MatchString(got) {
		t.Errorf("Handle() = %q, want /m/image_<8 hex>.png", got)
	}
}

func TestImageMaterializer_Prefix(t *testing.T) {
	t.Parallel()

	m := NewImageMaterializer(t.TempDir(), "/media/uploaded_images/")
	m.Prefix = "uploaded_"
	m.NameFunc = sequenceNames("0badf00d")

	got, err := m.Handle(&ExtractedImage{Key: "k", Data: pngHeader})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if want := "/media/uploaded_images/uploaded_0badf00d.png"; got != want {
		t.Errorf("Handle() = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestImageMaterializer_Materialize
// ---------------------------------------------------------------------------

func TestImageMaterializer_Materialize(t *testing.T) {
	t.Parallel()

	m := NewImageMaterializer(t.TempDir(), "/m/")
	m.NameFunc = sequenceNames("00000001", "00000002")

	mapping, err := m.Materialize([]ExtractedImage{
		{Key: "rId1", Data: pngHeader, ContentType: "image/png"},
		{Key: "rId2", Data: []byte("GIF89a..."), ContentType: ""},
	})
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	want := map[string]string{
		"rId1": "/m/image_00000001.png",
		"rId2": "/m/image_00000002.gif",
	}
	if len(mapping) != len(want) {
		t.Fatalf("mapping = %v, want %v", mapping, want)
	}
	for k, v := range want {
		if mapping[k] != v {
			t.Errorf("mapping[%q] = %q, want %q", k, mapping[k], v)
		}
	}
}

func TestImageMaterializer_MaterializeNoPartialMapping(t *testing.T) {
	t.Parallel()

	m := NewImageMaterializer(t.TempDir(), "/m/")
	mapping, err := m.Materialize([]ExtractedImage{
		{Key: "ok", Data: pngHeader, ContentType: "image/png"},
		{Key: "bad", Data: []byte("plain text"), ContentType: "text/plain"},
	})

	if !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("error = %v, want ErrUnsupportedImage", err)
	}
	if mapping != nil {
		t.Errorf("mapping = %v, want nil", mapping)
	}
}

func TestImageMaterializer_UnwritableDir(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("file permission semantics differ on Windows")
	}

	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A regular file where a directory is needed cannot be created over.
	m := NewImageMaterializer(filepath.Join(blocker, "images"), "/m/")
	_, err := m.Handle(&ExtractedImage{Key: "k", Data: pngHeader, ContentType: "image/png"})
	if !errors.Is(err, ErrOutputDir) {
		t.Errorf("error = %v, want ErrOutputDir", err)
	}
}

// ---------------------------------------------------------------------------
// TestImageExtension
// ---------------------------------------------------------------------------

func TestImageExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		data        []byte
		want        string
		wantErr     error
	}{
		{"image/png", nil, ".png", nil},
		{"image/jpeg", nil, ".jpg", nil},
		{"IMAGE/GIF", nil, ".gif", nil},
		{"image/svg+xml; charset=utf-8", nil, ".svg", nil},
		{"image/x-emf", nil, ".emf", nil},
		{"image/x-unknown", nil, ".jpg", nil},
		{"", pngHeader, ".png", nil},
		{"application/octet-stream", []byte("\xff\xd8\xff\xe0"), ".jpg", nil},
		{"text/plain", nil, "", ErrUnsupportedImage},
		{"", []byte("hello"), "", ErrUnsupportedImage},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", i, tt.contentType), func(t *testing.T) {
			t.Parallel()

			got, err := imageExtension(tt.contentType, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("imageExtension() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("imageExtension() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJobImagesURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mediaURL string
		want     string
	}{
		{"/media/", "/media/output/J/images/"},
		{"/media", "/media/output/J/images/"},
		{"media/", "/media/output/J/images/"},
		{"https://cdn.example.com/media/", "https://cdn.example.com/media/output/J/images/"},
	}

	for _, tt := range tests {
		t.Run(tt.mediaURL, func(t *testing.T) {
			t.Parallel()

			if got := JobImagesURL(tt.mediaURL, "J"); got != tt.want {
				t.Errorf("JobImagesURL(%q) = %q, want %q", tt.mediaURL, got, tt.want)
			}
		})
	}
}

func TestRandomSuffix(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := make(map[string]bool)
	for range 50 {
		s := RandomSuffix()
		if !re.MatchString(s) {
			t.Fatalf("RandomSuffix() = %q, want 8 hex chars", s)
		}
		seen[s] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct suffixes out of 50", len(seen))
	}
}
