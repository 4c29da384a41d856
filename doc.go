// Package docx2html converts DOCX (and Markdown) documents into
// normalized, styled HTML plus an archive of their images, and exports
// the result as a standalone page, Markdown or PDF.
//
// # Quick Start
//
//	conv, err := docx2html.NewConverter(docx2html.WithMediaRoot("media"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := conv.Convert(ctx, docx2html.NewJob("guide.docx", ""))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.HTMLPath, res.ArchivePath)
//
// # Conversion Pipeline
//
//  1. Raw conversion (OOXML for .docx, goldmark for .md); each embedded
//     image is written to <media>/output/<job>/images/ as it is found
//  2. Normalization of the HTML tree: markup-like paragraphs become code
//     blocks, adjacent code blocks merge, tables get Bootstrap classes and
//     code-bearing cells are rebuilt, nested paragraphs are unwrapped
//  3. Assembly into a full document with the configured head assets
//  4. Image archive <name>_images.zip next to <name>.html
//
// Normalization is idempotent, so an edited document saved with
// SaveEdited goes through the same rules and keeps its shape.
//
// # Export
//
// Export produces a standalone HTML page or Markdown. PDFExporter prints
// through headless Chrome (go-rod); use ExporterPool to share browsers
// between concurrent requests:
//
//	pool := docx2html.NewExporterPool(docx2html.ResolvePoolSize(0), func() (*docx2html.PDFExporter, error) {
//	    return docx2html.NewPDFExporter(conv)
//	})
//	defer pool.Close()
//
// # Errors
//
// Errors wrap the sentinels in errors.go; test them with errors.Is. Input
// problems (ErrEmptyDocument, ErrUnsupportedFormat, ErrCorruptDocument,
// ErrUnsupportedImage) are the caller's to fix, ErrNotFound means job output
// was removed from disk, and the browser family (ErrBrowserConnect,
// ErrPageLoad, ErrPDFGeneration) only concerns PDF export.
package docx2html
