package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	docx2html "github.com/alnah/go-docx2html"
	"github.com/alnah/go-docx2html/internal/assets"
	"github.com/alnah/go-docx2html/internal/dateutil"
	"github.com/alnah/go-docx2html/internal/store"
)

// Form fields.
const (
	documentField = "document"
	contentField  = "content"
	imageField    = "file"
	uploadIDField = "upload_id"
)

// Archive sort keys offered as column toggles.
const (
	sortName     = "original_name"
	sortDateDesc = "-uploaded_at"
)

// ---------------------------------------------------------------------------
// Pages
// ---------------------------------------------------------------------------

type uploadPage struct {
	BootstrapURL string
	Error        string
}

type resultPage struct {
	BootstrapURL string
	ID           string
	Name         string
	UploadedAt   string
	HTMLURL      string
}

type editPage struct {
	BootstrapURL string
	ID           string
	Name         string
	Content      string
}

type archiveRow struct {
	ID           string
	OriginalName string
	UploadedAt   string
}

type archivePage struct {
	BootstrapURL string
	Query        string
	Sort         string
	NameSort     string
	DateSort     string
	Uploads      []archiveRow
}

// render executes a page into a buffer first so a template error still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages[name].Execute(&buf, data); err != nil {
		s.log.WithError(err).WithField("template", name).Error("rendering page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) formatDate(t time.Time) string {
	out, err := dateutil.Format(s.cfg.DateFormat, t.Local())
	if err != nil {
		return t.Format(time.DateTime)
	}
	return out
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

func (s *Server) handleUploadForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, assets.UploadTemplateName, uploadPage{BootstrapURL: s.cfg.BootstrapURL})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, msg string) {
		s.render(w, status, assets.UploadTemplateName, uploadPage{BootstrapURL: s.cfg.BootstrapURL, Error: msg})
	}
	if r.ContentLength > s.cfg.MaxUploadBytes {
		fail(http.StatusRequestEntityTooLarge, "The file is too large.")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile(documentField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(http.StatusRequestEntityTooLarge, "The file is too large.")
			return
		}
		fail(http.StatusBadRequest, "Choose a .docx or .md file to convert.")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(http.StatusBadRequest, "The upload could not be read.")
		return
	}

	job, err := s.conv.SaveUpload(header.Filename, data)
	if err != nil {
		s.uploadFailed(w, err, fail)
		return
	}
	log := s.log.WithFields(logrus.Fields{"job_id": job.ID, "name": job.OriginalFilename})

	docRel, err := filepath.Rel(s.conv.MediaRoot(), job.SourcePath)
	if err != nil {
		docRel = job.SourcePath
	}
	upload := &store.Upload{
		ID:           job.ID,
		DocumentPath: filepath.ToSlash(docRel),
		OriginalName: job.OriginalFilename,
		UploadedAt:   s.now(),
	}
	if err := s.store.Create(r.Context(), upload); err != nil {
		_ = os.Remove(job.SourcePath)
		s.uploadFailed(w, err, fail)
		return
	}

	res, err := s.conv.Convert(r.Context(), job)
	if err != nil {
		s.cleanup(r, upload, log)
		s.uploadFailed(w, err, fail)
		return
	}
	if err := s.store.SetOutput(r.Context(), job.ID, res.HTMLRel, res.ArchiveRel); err != nil {
		s.cleanup(r, upload, log)
		s.uploadFailed(w, err, fail)
		return
	}

	http.Redirect(w, r, "/result/"+job.ID, http.StatusSeeOther)
}

// uploadFailed re-renders the upload form: 400 for problems with the
// document itself, 500 for everything else.
func (s *Server) uploadFailed(w http.ResponseWriter, err error, fail func(int, string)) {
	if msg, ok := inputErrorMessage(err); ok {
		s.log.WithError(err).Info("upload rejected")
		fail(http.StatusBadRequest, msg)
		return
	}
	s.log.WithError(err).Error("upload failed")
	fail(http.StatusInternalServerError, "The document could not be converted.")
}

func inputErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, docx2html.ErrEmptyDocument):
		return "The uploaded file is empty.", true
	case errors.Is(err, docx2html.ErrUnsupportedFormat):
		return "Only .docx and .md files are supported.", true
	case errors.Is(err, docx2html.ErrUnreadableDocument):
		return "The uploaded document could not be opened.", true
	case errors.Is(err, docx2html.ErrCorruptDocument):
		return "The document could not be read. Is it a valid Word file?", true
	case errors.Is(err, docx2html.ErrUnsupportedImage):
		return "The document contains an image in an unsupported format.", true
	}
	return "", false
}

// cleanup removes everything a failed upload left behind.
func (s *Server) cleanup(r *http.Request, u *store.Upload, log logrus.FieldLogger) {
	if err := s.conv.RemoveJob(u.ID); err != nil {
		log.WithError(err).Warn("removing job output")
	}
	if p, err := s.conv.Resolve(u.DocumentPath); err == nil {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("removing uploaded document")
		}
	}
	if err := s.store.Delete(r.Context(), u.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.WithError(err).Warn("removing upload record")
	}
}

// ---------------------------------------------------------------------------
// Result and edit
// ---------------------------------------------------------------------------

// loadUpload fetches the upload named in the URL and writes a 404 when it
// is unknown or has no output yet.
func (s *Server) loadUpload(w http.ResponseWriter, r *http.Request) (*store.Upload, bool) {
	u, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	if u.HTMLPath == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, false
	}
	return u, true
}

// fail maps missing records and files to 404 and anything else to 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, docx2html.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.log.WithError(err).Error("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) readDocument(u *store.Upload) (string, string, error) {
	p, err := s.conv.Resolve(u.HTMLPath)
	if err != nil {
		return "", "", err
	}
	content, err := s.conv.ReadHTML(p)
	return p, content, err
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	u, ok := s.loadUpload(w, r)
	if !ok {
		return
	}
	s.render(w, http.StatusOK, assets.ResultTemplateName, resultPage{
		BootstrapURL: s.cfg.BootstrapURL,
		ID:           u.ID,
		Name:         u.OriginalName,
		UploadedAt:   s.formatDate(u.UploadedAt),
		HTMLURL:      s.conv.URL(u.HTMLPath),
	})
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	u, ok := s.loadUpload(w, r)
	if !ok {
		return
	}
	_, content, err := s.readDocument(u)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.render(w, http.StatusOK, assets.EditTemplateName, editPage{
		BootstrapURL: s.cfg.BootstrapURL,
		ID:           u.ID,
		Name:         u.OriginalName,
		Content:      content,
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	u, ok := s.loadUpload(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	p, err := s.conv.Resolve(u.HTMLPath)
	if err != nil {
		s.fail(w, err)
		return
	}
	stats, err := s.conv.SaveEdited(r.Context(), p, r.PostForm.Get(contentField))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"job_id":      u.ID,
		"code_blocks": stats.CodeBlocks,
		"merged":      stats.Merged,
	}).Debug("document edited")
	http.Redirect(w, r, "/result/"+u.ID, http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Downloads
// ---------------------------------------------------------------------------

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	u, ok := s.loadUpload(w, r)
	if !ok {
		return
	}
	format := chi.URLParam(r, "format")
	stem := strings.TrimSuffix(path.Base(u.HTMLPath), ".html")

	if format == "zip" {
		s.serveArchive(w, r, u)
		return
	}

	p, content, err := s.readDocument(u)
	if err != nil {
		s.fail(w, err)
		return
	}

	switch format {
	case string(docx2html.ExportHTML), string(docx2html.ExportMarkdown):
		out, ext, err := s.conv.Export(content, docx2html.ExportFormat(format))
		if err != nil {
			s.fail(w, err)
			return
		}
		contentType := "text/html; charset=utf-8"
		if ext == ".md" {
			contentType = "text/markdown; charset=utf-8"
		}
		attach(w, contentType, stem+ext)
		_, _ = io.WriteString(w, out)
	case "pdf":
		if s.pdf == nil {
			http.Error(w, "PDF export is not available", http.StatusServiceUnavailable)
			return
		}
		data, err := s.pdf.Export(r.Context(), content)
		if err != nil {
			s.log.WithError(err).WithField("path", p).Error("PDF export failed")
			http.Error(w, "PDF export failed", http.StatusInternalServerError)
			return
		}
		attach(w, "application/pdf", stem+".pdf")
		_, _ = w.Write(data)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) serveArchive(w http.ResponseWriter, r *http.Request, u *store.Upload) {
	if u.ArchivePath == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	p, err := s.conv.Resolve(u.ArchivePath)
	if err != nil {
		s.fail(w, err)
		return
	}
	f, err := os.Open(p) // #nosec G304 -- resolved inside the media root
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.fail(w, err)
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		s.fail(w, err)
		return
	}
	attach(w, "application/zip", path.Base(u.ArchivePath))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

func attach(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

// ---------------------------------------------------------------------------
// Editor images
// ---------------------------------------------------------------------------

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	invalid := func(err error) {
		s.log.WithError(err).Info("image upload rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		invalid(err)
		return
	}
	defer func() { _ = file.Close() }()

	u, err := s.store.Get(r.Context(), r.FormValue(uploadIDField))
	if err != nil {
		invalid(err)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		invalid(err)
		return
	}
	location, err := s.conv.UploadImage(u.ID, data, header.Header.Get("Content-Type"))
	if err != nil {
		invalid(err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": location})
}

// ---------------------------------------------------------------------------
// Archive
// ---------------------------------------------------------------------------

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	sortKey := r.URL.Query().Get("sort")
	if sortKey == "" {
		sortKey = store.DefaultSort
	}

	uploads, err := s.store.List(r.Context(), store.ListOptions{Query: query, Sort: sortKey})
	if errors.Is(err, store.ErrInvalidSort) {
		sortKey = store.DefaultSort
		uploads, err = s.store.List(r.Context(), store.ListOptions{Query: query, Sort: sortKey})
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	rows := make([]archiveRow, 0, len(uploads))
	for _, u := range uploads {
		rows = append(rows, archiveRow{ID: u.ID, OriginalName: u.OriginalName, UploadedAt: s.formatDate(u.UploadedAt)})
	}
	s.render(w, http.StatusOK, assets.ArchiveTemplateName, archivePage{
		BootstrapURL: s.cfg.BootstrapURL,
		Query:        query,
		Sort:         sortKey,
		NameSort:     toggle(sortKey, sortName),
		DateSort:     toggle(sortKey, sortDateDesc),
		Uploads:      rows,
	})
}

// toggle returns the sort key a column header links to: key, or its
// reverse when the list is already sorted by key.
func toggle(current, key string) string {
	if current != key {
		return key
	}
	if strings.HasPrefix(key, "-") {
		return key[1:]
	}
	return "-" + key
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	log := s.log.WithField("job_id", u.ID)

	if err := s.conv.RemoveJob(u.ID); err != nil {
		s.fail(w, fmt.Errorf("removing output: %w", err))
		return
	}
	if p, err := s.conv.Resolve(u.DocumentPath); err == nil {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("removing uploaded document")
		}
	}
	if err := s.store.Delete(r.Context(), u.ID); err != nil {
		s.fail(w, err)
		return
	}
	log.Info("upload deleted")
	http.Redirect(w, r, "/archive", http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
