package importer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"bookarr/internal/catalog"
	"bookarr/internal/settings"
	"bookarr/pkg/models"
)

// ManifestSource supplies the remote book and file manifests a pass
// reconciles against. In production this is the Readarr adapter.
type ManifestSource interface {
	GetBooks(ctx context.Context) ([]models.RemoteBook, error)
	GetBookFiles(ctx context.Context) ([]models.RemoteFile, error)
}

// StatusUpdater advances outstanding requests after a pass has imported
// files. Implemented by the requests package.
type StatusUpdater interface {
	Run(ctx context.Context, remote []models.RemoteBook) error
}

// EventSink receives pass lifecycle events for observers (WS hub).
type EventSink interface {
	BroadcastJSON(v any)
}

// Importer performs one reconciliation pass: upsert metadata for every
// remote book, materialize not-yet-imported files into the canonical
// library layout and fingerprint them, then advance request statuses.
// Every per-book and per-file failure is logged and skipped; a pass only
// fails outright when the manifest itself cannot be fetched.
type Importer struct {
	Catalog  *catalog.Repo
	Settings *settings.Store
	Source   ManifestSource
	Updater  StatusUpdater
	Events   EventSink
}

func (im *Importer) RunPass(ctx context.Context) error {
	log.Printf("[sync] starting reconciliation pass")
	im.broadcast(SyncEvent{Type: EventSyncStarted})

	books, err := im.Source.GetBooks(ctx)
	if err != nil {
		return fmt.Errorf("fetch remote books: %w", err)
	}
	files, err := im.Source.GetBookFiles(ctx)
	if err != nil {
		return fmt.Errorf("fetch remote files: %w", err)
	}

	filesByBook := make(map[int64][]models.RemoteFile, len(books))
	for _, f := range files {
		filesByBook[f.BookID] = append(filesByBook[f.BookID], f)
	}

	libraryRoot := im.Settings.Get(ctx, "library_root", "/books")
	importMode := im.Settings.Get(ctx, "import_mode", ModeCopy)

	imported := 0
	for _, book := range books {
		n, err := im.processBook(ctx, book, filesByBook[book.ID], libraryRoot, importMode)
		if err != nil {
			log.Printf("[sync] book %q: %v", book.Title, err)
			continue
		}
		imported += n
	}

	if im.Updater != nil {
		if err := im.Updater.Run(ctx, books); err != nil {
			log.Printf("[sync] request status update: %v", err)
		}
	}

	log.Printf("[sync] pass completed: %d books in manifest, %d files imported", len(books), imported)
	im.broadcast(SyncEvent{Type: EventSyncCompleted, Books: len(books), Imported: imported})
	return nil
}

// processBook upserts one book's metadata and imports its files. Returns
// how many files were newly imported.
func (im *Importer) processBook(ctx context.Context, book models.RemoteBook, files []models.RemoteFile, libraryRoot, importMode string) (int, error) {
	if book.ForeignBookID == "" {
		return 0, fmt.Errorf("missing external id")
	}

	bookID, err := im.importMetadata(ctx, book)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, f := range files {
		ok, err := im.importFile(ctx, bookID, book, f, libraryRoot, importMode)
		if err != nil {
			// one broken file must not abort the rest of the pass
			log.Printf("[sync] file %s: %v", f.Path, err)
			continue
		}
		if ok {
			imported++
			im.broadcast(SyncEvent{
				Type:  EventBookImported,
				Title: book.Title,
				File:  filepath.Base(f.Path),
			})
		}
	}
	return imported, nil
}

func (im *Importer) importMetadata(ctx context.Context, book models.RemoteBook) (int64, error) {
	var authorExternalID, authorBio, authorImage string
	if book.Author != nil {
		authorExternalID = book.Author.ForeignAuthorID
		authorBio = book.Author.Overview
		if len(book.Author.Images) > 0 {
			authorImage = book.Author.Images[0].URL
		}
	}

	authorID, err := im.Catalog.UpsertAuthor(ctx, book.AuthorName(), authorExternalID, authorBio, authorImage)
	if err != nil {
		return 0, err
	}

	meta := catalog.BookMeta{
		ExternalID:  book.ForeignBookID,
		Title:       book.Title,
		AuthorID:    authorID,
		Description: book.Overview,
		CoverURL:    book.CoverURL(),
		ReleaseDate: book.ReleaseDate,
		PageCount:   book.PageCount,
		Rating:      book.Ratings.Value,
	}
	if len(book.Editions) > 0 {
		meta.Publisher = book.Editions[0].Publisher
		meta.ISBN = book.Editions[0].ISBN13
	}

	bookID, err := im.Catalog.UpsertBook(ctx, meta)
	if err != nil {
		return 0, err
	}

	for _, genre := range book.Genres {
		if genre == "" {
			continue
		}
		genreID, err := im.Catalog.UpsertGenre(ctx, genre)
		if err != nil {
			return 0, err
		}
		if err := im.Catalog.LinkGenre(ctx, bookID, genreID); err != nil {
			return 0, err
		}
	}

	if book.SeriesTitle != "" {
		seriesID, err := im.Catalog.UpsertSeries(ctx, book.SeriesTitle, book.SeriesID)
		if err != nil {
			return 0, err
		}
		if err := im.Catalog.LinkSeries(ctx, bookID, seriesID, book.SeriesPosition); err != nil {
			return 0, err
		}
	}

	return bookID, nil
}

// importFile materializes one remote file unless its canonical path is
// already recorded. Returns true when a new file was imported.
func (im *Importer) importFile(ctx context.Context, bookID int64, book models.RemoteBook, f models.RemoteFile, libraryRoot, importMode string) (bool, error) {
	fileName := filepath.Base(f.Path)
	target := targetPath(libraryRoot, book.AuthorName(), book.Title, fileName)

	exists, err := im.Catalog.FileExists(ctx, target)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	size, err := materialize(f.Path, target, importMode)
	if err != nil {
		return false, err
	}
	if f.Size > 0 {
		size = f.Size
	}

	hash, err := fingerprint(target)
	if err != nil {
		return false, err
	}

	if err := im.Catalog.InsertFile(ctx, models.BookFile{
		BookID:  bookID,
		Path:    target,
		Name:    fileName,
		Size:    size,
		Format:  fileFormat(fileName),
		Hash:    hash,
		Quality: f.QualityName(),
	}); err != nil {
		return false, err
	}

	log.Printf("[sync] imported %s", fileName)
	return true, nil
}

func (im *Importer) broadcast(ev SyncEvent) {
	if im.Events != nil {
		ev.At = time.Now().UTC()
		im.Events.BroadcastJSON(ev)
	}
}
