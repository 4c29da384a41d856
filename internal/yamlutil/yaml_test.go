package yamlutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-docx2html/internal/yamlutil"
)

type mediaSettings struct {
	Root string `yaml:"root"`
	URL  string `yaml:"url"`
	Max  int    `yaml:"maxUploadMB"`
}

// ---------------------------------------------------------------------------
// TestUnmarshal
// ---------------------------------------------------------------------------

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		want    mediaSettings
		wantErr error
	}{
		{
			name: "valid document",
			data: []byte("root: /srv/media\nurl: /media/\nmaxUploadMB: 20"),
			dest: &mediaSettings{},
			want: mediaSettings{Root: "/srv/media", URL: "/media/", Max: 20},
		},
		{
			name: "unknown keys ignored",
			data: []byte("root: /m\nextra: true"),
			dest: &mediaSettings{},
			want: mediaSettings{Root: "/m"},
		},
		{name: "nil data", data: nil, dest: &mediaSettings{}, wantErr: yamlutil.ErrNilData},
		{name: "empty data", data: []byte{}, dest: &mediaSettings{}, wantErr: yamlutil.ErrNilData},
		{name: "nil destination", data: []byte("root: x"), dest: nil, wantErr: yamlutil.ErrNilDestination},
		{
			name:    "too large",
			data:    []byte("root: " + strings.Repeat("x", yamlutil.MaxInputSize)),
			dest:    &mediaSettings{},
			wantErr: yamlutil.ErrInputTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.Unmarshal(tt.data, tt.dest)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Unmarshal() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got := *tt.dest.(*mediaSettings); got != tt.want {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	var ok mediaSettings
	if err := yamlutil.UnmarshalStrict([]byte("root: /m\nurl: /media/"), &ok); err != nil {
		t.Fatalf("UnmarshalStrict() error = %v", err)
	}
	if ok.URL != "/media/" {
		t.Errorf("URL = %q, want /media/", ok.URL)
	}

	var bad mediaSettings
	err := yamlutil.UnmarshalStrict([]byte("root: /m\nroots: /n"), &bad)
	if err == nil {
		t.Fatal("UnmarshalStrict() accepted unknown key")
	}
	if !strings.HasPrefix(err.Error(), "yamlutil:") {
		t.Errorf("error = %q, want yamlutil prefix", err)
	}
}

// ---------------------------------------------------------------------------
// TestMarshal
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	in := mediaSettings{Root: "/srv", URL: "/media/", Max: 5}
	data, err := yamlutil.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out mediaSettings
	if err := yamlutil.UnmarshalStrict(data, &out); err != nil {
		t.Fatalf("UnmarshalStrict() error = %v", err)
	}
	if out != in {
		t.Errorf("decoded %+v, want %+v", out, in)
	}
}

// ---------------------------------------------------------------------------
// TestReadFileStrict
// ---------------------------------------------------------------------------

func TestReadFileStrict(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "media.yaml")
	if err := os.WriteFile(path, []byte("root: /data\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var got mediaSettings
	if err := yamlutil.ReadFileStrict(path, &got); err != nil {
		t.Fatalf("ReadFileStrict() error = %v", err)
	}
	if got.Root != "/data" {
		t.Errorf("Root = %q, want /data", got.Root)
	}

	err := yamlutil.ReadFileStrict(filepath.Join(dir, "missing.yaml"), &got)
	if !os.IsNotExist(err) {
		t.Errorf("missing file error = %v, want not-exist", err)
	}
}
