package docx2html

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-docx2html/internal/assets"
	"github.com/alnah/go-docx2html/internal/dateutil"
	"github.com/alnah/go-docx2html/internal/docx"
	"github.com/alnah/go-docx2html/internal/fileutil"
	"github.com/alnah/go-docx2html/internal/htmltree"
	"github.com/alnah/go-docx2html/internal/metrics"
	"github.com/alnah/go-docx2html/internal/pipeline"
)

// OutputDirName is the directory under the media root holding job output.
const OutputDirName = "output"

const (
	uploadedImagePrefix = "uploaded_"
	archiveSuffix       = "_images.zip"
)

// validJobID matches the IDs accepted as output directory names.
var validJobID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Converter runs the DOCX-to-HTML pipeline and manages job output under
// the media root. A Converter holds no per-job state and is safe for
// concurrent use.
type Converter struct {
	cfg        converterConfig
	converters map[Format]RawConverter
	assembler  *pipeline.Assembler
	loader     assets.AssetLoader
	log        logrus.FieldLogger
	metrics    metrics.Metrics
}

// NewConverter creates a Converter. Without options, output goes to
// ./media served under /media/ and DOCX style names follow the built-in
// style map.
func NewConverter(opts ...Option) (*Converter, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Converter{
		cfg: converterConfig{
			mediaRoot:        DefaultMediaRoot,
			mediaURL:         DefaultMediaURL,
			uploadPathFormat: dateutil.DefaultPathFormat,
			assets:           pipeline.DefaultAssetSet(),
			now:              time.Now,
		},
		converters: map[Format]RawConverter{
			FormatDOCX:     docx.NewConverter(),
			FormatMarkdown: pipeline.NewGoldmarkConverter(),
		},
		loader: assets.NewEmbeddedLoader(),
		log:    discard,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		c.loader = resolver
	}
	if strings.TrimSpace(c.cfg.styleMap) != "" {
		if _, err := docx.ParseStyleMap(c.cfg.styleMap); err != nil {
			return nil, err
		}
	}
	if _, err := dateutil.UploadDir(c.cfg.uploadPathFormat, c.cfg.now()); err != nil {
		return nil, fmt.Errorf("upload path format: %w", err)
	}

	c.assembler = pipeline.NewAssembler(c.cfg.assets)
	return c, nil
}

// MediaRoot returns the directory job output is written under.
func (c *Converter) MediaRoot() string {
	return c.cfg.mediaRoot
}

// MediaURL returns the URL prefix of the media root, with a trailing slash.
func (c *Converter) MediaURL() string {
	return c.cfg.mediaURL
}

// Assets returns the head assets of assembled documents.
func (c *Converter) Assets() AssetSet {
	return c.cfg.assets
}

// Convert runs the full pipeline for job: raw conversion with images
// written as they are extracted, normalization, assembly, then the image
// archive. Output files are overwritten if the job ran before.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, job Job) (result *Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
		c.observe(job.Format(), err, start)
	}()

	if job.ID == "" {
		job.ID = NewJob(job.SourcePath, job.OriginalFilename).ID
	}
	if err := validateJobID(job.ID); err != nil {
		return nil, err
	}
	rc, ok := c.converters[job.Format()]
	if !ok || rc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, job.OriginalFilename)
	}

	data := job.Data
	if data == nil {
		data, err = os.ReadFile(job.SourcePath) // #nosec G304 -- caller-provided document
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	log := c.log.WithFields(logrus.Fields{"job_id": job.ID, "format": job.Format()})

	outDir := c.outputDir(job.ID)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}

	imagesDir := filepath.Join(outDir, pipeline.ImagesDirName)
	images := pipeline.NewImageMaterializer(imagesDir, pipeline.JobImagesURL(c.cfg.mediaURL, job.ID))

	raw, err := rc.ToHTML(ctx, data, c.cfg.styleMap, images.Handle)
	if err != nil {
		return nil, classifyRawError(err)
	}
	log.WithField("images", images.Count()).Debug("raw conversion done")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := htmltree.ParseBody(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	normalizer := pipeline.Normalizer{Images: images.Mapping()}
	stats := normalizer.Normalize(root)
	log.WithFields(logrus.Fields{
		"code_blocks": stats.CodeBlocks,
		"merged":      stats.Merged,
		"tables":      stats.Tables,
	}).Debug("normalized")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := c.assembler.Assemble(root)
	if err != nil {
		return nil, err
	}

	base := fileutil.SanitizeBaseName(job.OriginalFilename)
	res := &Result{
		Job:             job,
		HTMLFilename:    base + ".html",
		ArchiveFilename: base + archiveSuffix,
		HTML:            doc,
		Images:          images.Count(),
		Stats:           toStats(stats),
	}
	res.HTMLPath = filepath.Join(outDir, res.HTMLFilename)
	res.ArchivePath = filepath.Join(outDir, res.ArchiveFilename)
	res.HTMLRel = path.Join(OutputDirName, job.ID, res.HTMLFilename)
	res.ArchiveRel = path.Join(OutputDirName, job.ID, res.ArchiveFilename)

	if err := pipeline.WriteFile(res.HTMLPath, doc); err != nil {
		return nil, err
	}
	entries, err := pipeline.BuildImageArchive(imagesDir, res.ArchivePath, images.Filenames())
	if err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.AddNormalized(images.Count(), stats.CodeBlocks, stats.Merged, stats.Tables)
	}
	log.WithFields(logrus.Fields{
		"html":    res.HTMLRel,
		"archive": res.ArchiveRel,
		"entries": entries,
	}).Info("document converted")
	return res, nil
}

// SaveEdited re-normalizes user-edited HTML and overwrites the document at
// htmlPath. Head content in the edit is replaced by the configured assets.
// Returns ErrNotFound if the document no longer exists.
func (c *Converter) SaveEdited(ctx context.Context, htmlPath, edited string) (stats Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if !fileutil.FileExists(htmlPath) {
		return Stats{}, fmt.Errorf("%w: %s", ErrNotFound, htmlPath)
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	root, st := pipeline.Renormalize(edited)
	doc, err := c.assembler.Assemble(root)
	if err != nil {
		return Stats{}, err
	}
	if err := pipeline.WriteFile(htmlPath, doc); err != nil {
		return Stats{}, err
	}
	c.log.WithFields(logrus.Fields{
		"path":        htmlPath,
		"code_blocks": st.CodeBlocks,
		"merged":      st.Merged,
	}).Info("edited document saved")
	return toStats(st), nil
}

// ReadHTML returns the document at htmlPath. Returns ErrNotFound if it
// does not exist.
func (c *Converter) ReadHTML(htmlPath string) (string, error) {
	data, err := os.ReadFile(htmlPath) // #nosec G304 -- path from job record
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, htmlPath)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveUpload stores an uploaded document under uploads/<date>/ in the media
// root and returns a job for it. The stored name keeps the sanitized
// original name; a numeric suffix avoids overwriting earlier uploads.
func (c *Converter) SaveUpload(filename string, data []byte) (Job, error) {
	if len(data) == 0 {
		return Job{}, ErrEmptyDocument
	}
	job := Job{OriginalFilename: filepath.Base(strings.ReplaceAll(filename, "\\", "/"))}
	if job.Format() == "" {
		return Job{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}

	rel, err := dateutil.UploadDir(c.cfg.uploadPathFormat, c.cfg.now())
	if err != nil {
		return Job{}, err
	}
	dir, err := fileutil.Within(c.cfg.mediaRoot, rel)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}

	base := fileutil.SanitizeBaseName(job.OriginalFilename)
	ext := strings.ToLower(filepath.Ext(job.OriginalFilename))
	for i := 0; ; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		p := filepath.Join(dir, name)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) // #nosec G304 -- name sanitized above
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return Job{}, fmt.Errorf("%w: %v", ErrOutputDir, err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return Job{}, fmt.Errorf("%w: %v", ErrOutputDir, werr)
		}
		if cerr != nil {
			return Job{}, fmt.Errorf("%w: %v", ErrOutputDir, cerr)
		}
		job = NewJob(p, job.OriginalFilename)
		return job, nil
	}
}

// UploadImage stores an image inserted in the editor next to the job's
// extracted images and returns the URL it is served under. The archive
// built at conversion time is left unchanged.
func (c *Converter) UploadImage(jobID string, data []byte, contentType string) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	m := pipeline.NewImageMaterializer(
		filepath.Join(c.outputDir(jobID), pipeline.ImagesDirName),
		pipeline.JobImagesURL(c.cfg.mediaURL, jobID),
	)
	m.Prefix = uploadedImagePrefix
	return m.Handle(&pipeline.ExtractedImage{
		Key:         pipeline.RandomSuffix(),
		Data:        data,
		ContentType: contentType,
	})
}

// Resolve maps a path relative to the media root onto the filesystem,
// refusing paths that leave the root.
func (c *Converter) Resolve(rel string) (string, error) {
	p, err := fileutil.Within(c.cfg.mediaRoot, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return p, nil
}

// URL returns the public URL of a path relative to the media root.
func (c *Converter) URL(rel string) string {
	return c.cfg.mediaURL + strings.TrimPrefix(rel, "/")
}

// RemoveJob deletes a job's output directory. A missing directory is not
// an error.
func (c *Converter) RemoveJob(id string) error {
	if err := validateJobID(id); err != nil {
		return err
	}
	return os.RemoveAll(c.outputDir(id))
}

func (c *Converter) outputDir(id string) string {
	return filepath.Join(c.cfg.mediaRoot, OutputDirName, id)
}

func (c *Converter) observe(format Format, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.ObserveConversion(string(format), status, time.Since(start).Seconds())
}

func validateJobID(id string) error {
	if !validJobID.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, id)
	}
	return nil
}

// classifyRawError maps raw converter failures onto the input error family.
func classifyRawError(err error) error {
	switch {
	case errors.Is(err, docx.ErrNotDocx):
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	case errors.Is(err, docx.ErrMissingPart), errors.Is(err, docx.ErrMalformedPart),
		errors.Is(err, pipeline.ErrHTMLConversion):
		return fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return err
}
