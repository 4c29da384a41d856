// Package assets provides the stylesheets and page templates used by the
// converter, the PDF exporter and the web server.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in assets compiled in with go:embed
//	    ├── FilesystemLoader  - assets from a static directory on disk
//	    └── AssetResolver     - custom-first, embedded fallback
//
// The static directory uses the same layout as the embedded assets, so a
// deployment can serve it at /static/ and override single files:
//
//	{basePath}/
//	├── css/
//	│   └── {name}.css        # styles.css is the project stylesheet
//	└── templates/
//	    └── {name}.html       # page templates (html/template syntax)
//
// # Security
//
// Asset names are validated to prevent path traversal.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
