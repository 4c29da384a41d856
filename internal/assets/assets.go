package assets

// defaultLoader serves the embedded assets.
var defaultLoader = NewEmbeddedLoader()

// Names of the built-in assets.
const (
	// ProjectStyleName is the stylesheet linked from every converted
	// document as /static/css/styles.css.
	ProjectStyleName = "styles"

	// PrintStyleName holds the rules added when a document is printed to PDF.
	PrintStyleName = "print"

	// DownloadTemplateName wraps an edited body into the standalone page
	// offered for download.
	DownloadTemplateName = "download"
)

// Pages of the web interface.
const (
	UploadTemplateName  = "upload"
	ResultTemplateName  = "result"
	EditTemplateName    = "edit"
	ArchiveTemplateName = "archive"
)

// LoadStyle loads an embedded CSS file by name, without the .css extension.
// Returns ErrStyleNotFound if the style does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or dots.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads an embedded HTML template by name, without the .html
// extension.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}
