package requests

import (
	"context"
	"fmt"
	"log"

	"bookarr/internal/catalog"
	"bookarr/pkg/models"
)

// Updater advances pending requests after a reconciliation pass. A request
// completes once its book appears in the remote manifest and the local
// catalog owns at least one imported file for it.
type Updater struct {
	Repo    *Repo
	Catalog *catalog.Repo
}

func NewUpdater(repo *Repo, cat *catalog.Repo) *Updater {
	return &Updater{Repo: repo, Catalog: cat}
}

func (u *Updater) Run(ctx context.Context, remote []models.RemoteBook) error {
	outstanding, err := u.Repo.Outstanding(ctx)
	if err != nil {
		return fmt.Errorf("load outstanding: %w", err)
	}
	if len(outstanding) == 0 {
		return nil
	}

	byProviderID := make(map[int64]models.RemoteBook, len(remote))
	byExternalID := make(map[string]models.RemoteBook, len(remote))
	for _, b := range remote {
		byProviderID[b.ID] = b
		if b.ForeignBookID != "" {
			byExternalID[b.ForeignBookID] = b
		}
	}

	for _, req := range outstanding {
		// Prefer the id the catalog server assigned at request time; fall
		// back to the external id the book was requested under.
		book, ok := models.RemoteBook{}, false
		if req.ProviderID != 0 {
			book, ok = byProviderID[req.ProviderID]
		}
		if !ok {
			book, ok = byExternalID[req.ExternalID]
		}
		if !ok {
			continue
		}

		n, err := u.Catalog.FileCountByExternalID(ctx, book.ForeignBookID)
		if err != nil {
			log.Printf("[sync] request %d: %v", req.ID, err)
			continue
		}
		if n == 0 {
			continue
		}

		if err := u.Repo.MarkCompleted(ctx, req.ID); err != nil {
			log.Printf("[sync] request %d: %v", req.ID, err)
			continue
		}
		log.Printf("[sync] request %d completed (%s)", req.ID, req.Title)
	}
	return nil
}
