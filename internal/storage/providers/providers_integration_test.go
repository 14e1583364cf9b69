//go:build integration

package providers

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
)

// Run with a disposable database:
//
//	BOARDPACKS_TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/storage/providers
func openTestProviders(t *testing.T) *Providers {
	t.Helper()
	url := os.Getenv("BOARDPACKS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BOARDPACKS_TEST_DATABASE_URL is not set")
	}

	m, err := migrate.New("file://../../../migrations", url)
	if err != nil {
		t.Fatalf("open migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	m.Close()

	db, err := storage.InitDB(url, storage.PoolConfig{MaxConns: 10})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	return New(db)
}

func savePack(t *testing.T, p *Providers, boardID uuid.UUID, titles ...string) (domains.Pack, []domains.PackSection) {
	t.Helper()
	sections := make([]domains.PackSectionToSave, 0, len(titles))
	for i, title := range titles {
		sections = append(sections, domains.PackSectionToSave{Title: title, OrderIndex: i})
	}
	pack, saved, err := p.PackProvider.SavePack(context.Background(), domains.PackToSave{
		BoardID:     boardID,
		MeetingDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Title:       "June board meeting",
		Status:      domains.PackStatusDraft,
		CreatedBy:   uuid.New(),
		Sections:    sections,
	})
	if err != nil {
		t.Fatalf("save pack: %v", err)
	}
	return pack, saved
}

func submitText(t *testing.T, p *Providers, sectionID uuid.UUID, text string) domains.SubmissionResult {
	t.Helper()
	result, err := p.DocumentProvider.SubmitDocument(context.Background(), domains.DocumentToSave{
		SectionID:     sectionID,
		Content:       domains.SectionContent{Kind: domains.ContentFreeformText, Text: text},
		ContentDigest: text,
		CreatedBy:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("submit %q: %v", text, err)
	}
	return result
}

func TestSubmitDocumentClaimsSequentialVersions(t *testing.T) {
	p := openTestProviders(t)
	ctx := context.Background()
	pack, sections := savePack(t, p, uuid.New(), "CoverPage", "Financials")

	first := submitText(t, p, sections[0].ID, "draft")
	second := submitText(t, p, sections[0].ID, "final")
	if first.Document.VersionNumber != 1 || second.Document.VersionNumber != 2 {
		t.Fatalf("versions = %d, %d", first.Document.VersionNumber, second.Document.VersionNumber)
	}

	views, err := p.PackProvider.GetPackSections(ctx, pack.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("sections = %d", len(views))
	}
	if views[0].Status != domains.SectionStatusSubmitted || views[0].Document == nil || views[0].Document.VersionNumber != 2 {
		t.Fatalf("cover page = %+v", views[0])
	}
	if views[1].Document != nil {
		t.Fatalf("financials has a document: %+v", views[1].Document)
	}

	if _, err := p.DocumentProvider.GetSectionDocument(ctx, sections[0].ID, 3); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("version 3 err = %v", err)
	}
}

func TestConcurrentSubmissionsGetDistinctVersions(t *testing.T) {
	p := openTestProviders(t)
	_, sections := savePack(t, p, uuid.New(), "Minutes")
	sectionID := sections[0].ID

	const writers = 8
	versions := make([]int, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := p.DocumentProvider.SubmitDocument(context.Background(), domains.DocumentToSave{
				SectionID: sectionID,
				Content:   domains.SectionContent{Kind: domains.ContentFreeformText, Text: uuid.NewString()},
				CreatedBy: uuid.New(),
			})
			versions[i], errs[i] = result.Document.VersionNumber, err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("concurrent submit: %v", err)
		}
	}

	sort.Ints(versions)
	for i, v := range versions {
		if v != i+1 {
			t.Fatalf("versions = %v, want 1..%d", versions, writers)
		}
	}

	section, err := p.PackProvider.GetSectionByID(context.Background(), sectionID)
	if err != nil {
		t.Fatal(err)
	}
	latest, err := p.DocumentProvider.GetSectionDocument(context.Background(), sectionID, writers)
	if err != nil {
		t.Fatal(err)
	}
	if section.DocumentID == nil || *section.DocumentID != latest.ID {
		t.Fatalf("section points at %v, want %v", section.DocumentID, latest.ID)
	}
}

func TestListPacksByBoardCountsSections(t *testing.T) {
	p := openTestProviders(t)
	boardID := uuid.New()
	pack, sections := savePack(t, p, boardID, "CoverPage", "Financials", "Appendix")
	submitText(t, p, sections[1].ID, "numbers")
	submitText(t, p, sections[1].ID, "revised numbers")

	summaries, err := p.PackProvider.ListPacksByBoard(context.Background(), boardID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].ID != pack.ID {
		t.Fatalf("summaries = %+v", summaries)
	}
	if summaries[0].TotalSections != 3 || summaries[0].SubmittedSections != 1 {
		t.Fatalf("counts = %d/%d, want 1/3", summaries[0].SubmittedSections, summaries[0].TotalSections)
	}
}

func TestDeleteEmptyPacksKeepsPacksWithSections(t *testing.T) {
	p := openTestProviders(t)
	ctx := context.Background()
	boardID := uuid.New()
	empty, _ := savePack(t, p, boardID)
	kept, _ := savePack(t, p, boardID, "CoverPage")

	deleted, err := p.MaintenanceProvider.DeleteEmptyPacks(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if deleted < 1 {
		t.Fatalf("deleted = %d", deleted)
	}
	if _, err := p.PackProvider.GetPackByID(ctx, empty.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("empty pack err = %v, want not found", err)
	}
	if _, err := p.PackProvider.GetPackByID(ctx, kept.ID); err != nil {
		t.Fatalf("pack with sections was removed: %v", err)
	}
}
