// Package pipeline implements the DOCX-to-HTML normalization pipeline.
//
// Stages, in the order a conversion runs them:
//   - Raw conversion (RawConverter) with embedded images handed to an
//     ImageMaterializer as they are found
//   - Markup classification of block text (Classify, IsSeparator)
//   - Block normalization: code block reclassification and merging, table
//     restructuring and paragraph de-nesting (Normalizer)
//   - Document assembly with a versioned head AssetSet (Assembler)
//   - Image archive creation (BuildImageArchive)
//
// The edit path (Renormalize) re-runs normalization on user-edited HTML
// without touching images. Every stage works on an htmltree owned by one
// caller; nothing here is shared between jobs.
//
// PDF rendering is handled by the root docx2html package. This package only
// provides the HTML-side helpers it needs (RewriteMediaPaths, StyleInjection).
package pipeline
