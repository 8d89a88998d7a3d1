package app

import (
	"context"

	"theonebook/internal/export"
)

// Export renders the whole book into an in-memory PDF. Nothing is returned
// unless every content read succeeded, so callers can send headers only
// after a successful render.
func (a *App) Export(ctx context.Context) (*export.PDFDocument, export.Stats, error) {
	doc, err := export.NewPDFDocument(export.PDFOptions{
		Title:        a.exportCfg.Title,
		Author:       a.exportCfg.Author,
		FontPath:     a.exportCfg.FontPath,
		BoldFontPath: a.exportCfg.BoldFontPath,
		CreationDate: a.now(),
	})
	if err != nil {
		return nil, export.Stats{}, err
	}
	stats, err := a.pipeline.Render(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, stats, ctxErr
		}
		return nil, stats, storeErr("export", 0, err)
	}
	return doc, stats, nil
}

// ExportFilename is the attachment name of the exported document.
func (a *App) ExportFilename() string {
	return a.exportCfg.Filename
}
