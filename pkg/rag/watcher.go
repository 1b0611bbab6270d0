package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/creator"
)

// DocumentRegistrar records document metadata for ingested files and purges
// it (metadata and vectors) when a file goes away. Satisfied by
// creator.Service.
type DocumentRegistrar interface {
	AddDocument(ctx context.Context, creatorID uuid.UUID, title, source string) (*creator.Document, error)
	RemoveDocument(ctx context.Context, creatorID, docID uuid.UUID) error
}

// Watcher ingests files from a directory into a creator's knowledge base,
// either as a one-shot scan or continuously via fsnotify. It tracks which
// document each path produced, so a re-ingested file replaces its previous
// chunks instead of accumulating a second copy, and a deleted file takes its
// chunks with it.
type Watcher struct {
	ingestor  *Ingestor
	registrar DocumentRegistrar
	creatorID uuid.UUID
	docs      map[string]uuid.UUID
	logger    *zap.Logger
}

func NewWatcher(ingestor *Ingestor, registrar DocumentRegistrar, creatorID uuid.UUID, logger *zap.Logger) *Watcher {
	return &Watcher{
		ingestor:  ingestor,
		registrar: registrar,
		creatorID: creatorID,
		docs:      make(map[string]uuid.UUID),
		logger:    logger,
	}
}

func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

// IngestFile registers and ingests a single file. A path seen before is
// replaced: its previous document and chunks are removed first.
func (w *Watcher) IngestFile(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if oldID, ok := w.docs[path]; ok {
		if err := w.registrar.RemoveDocument(ctx, w.creatorID, oldID); err != nil {
			w.logger.Warn("remove superseded document",
				zap.String("path", path),
				zap.String("document_id", oldID.String()),
				zap.Error(err))
		}
		delete(w.docs, path)
	}

	doc, err := w.registrar.AddDocument(ctx, w.creatorID, filepath.Base(path), path)
	if err != nil {
		return fmt.Errorf("register document %s: %w", path, err)
	}
	w.docs[path] = doc.ID
	return w.ingestor.Ingest(ctx, w.creatorID, doc.ID, string(content))
}

// RemoveFile drops the document ingested from path, if any.
func (w *Watcher) RemoveFile(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	docID, ok := w.docs[path]
	if !ok {
		return nil
	}
	delete(w.docs, path)
	if err := w.registrar.RemoveDocument(ctx, w.creatorID, docID); err != nil {
		return fmt.Errorf("remove document for %s: %w", path, err)
	}
	return nil
}

// Scan ingests every supported file under dir once.
func (w *Watcher) Scan(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedFile(path) {
			return nil
		}
		if err := w.IngestFile(ctx, path); err != nil {
			w.logger.Error("ingest file", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

// Watch ingests supported files as they are created or written under dir,
// until ctx is cancelled. Editors that save via temp-file rename fire both
// Create and Write; both trigger a re-ingest. Removed or renamed-away files
// have their documents purged.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !supportedFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				if err := w.IngestFile(ctx, event.Name); err != nil {
					w.logger.Error("ingest file", zap.String("path", event.Name), zap.Error(err))
				}
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				if err := w.RemoveFile(ctx, event.Name); err != nil {
					w.logger.Error("remove file", zap.String("path", event.Name), zap.Error(err))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
