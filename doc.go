// Package quire is the composition root of Quire, a block-structured note
// editor core.
//
// A note is a title plus an ordered list of typed blocks (paragraphs,
// headings, lists, checklists, dividers, images). The editing components
// live under pkg/: the document store is the single writer of the note
// model, the inline codec maps rich text to a flat token string, the caret
// bridge keeps the rendered surface and the model in step, the editor turns
// keys into block operations recorded by the history engine, and the drag
// engines reorder blocks and sidebar rows.
//
// Persistence is a collaborator: the syncer watches store events and saves
// snapshots through any core.Repository (a directory of files, SQLite, or a
// remote repository over a websocket).
//
// Usage:
//
//	ws, err := quire.Open(ctx, "./notes", quire.WorkspaceConfig{},
//		quire.WithAutoInit(true),
//		quire.WithFormat(".md"),
//	)
//	if err != nil {
//		return err
//	}
//	if err := ws.Start(ctx); err != nil {
//		return err
//	}
package quire
