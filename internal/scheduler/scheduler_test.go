package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/query"
	"boardpacks/internal/storage"
	"boardpacks/internal/storage/memstore"

	"github.com/google/uuid"
)

type scopes []string

func (s *scopes) InvalidateScope(scope string) { *s = append(*s, scope) }

func TestSweepRemovesOldEmptyHeaders(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return created })

	board := uuid.New()
	if _, err := store.SaveTemplate(ctx, domains.TemplateToSave{BoardID: board, Name: "abandoned"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.SavePack(ctx, domains.PackToSave{BoardID: board, Title: "abandoned", Status: domains.PackStatusDraft}); err != nil {
		t.Fatal(err)
	}
	kept, _, err := store.SavePack(ctx, domains.PackToSave{
		BoardID:  board,
		Title:    "March",
		Status:   domains.PackStatusDraft,
		Sections: []domains.PackSectionToSave{{Title: "CoverPage", OrderIndex: 0}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var invalidated scopes
	sweeper := NewSweeper(store, &invalidated, nil, time.Minute, time.Hour)

	sweeper.now = func() time.Time { return created.Add(30 * time.Minute) }
	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result != (domains.SweepResult{}) {
		t.Fatalf("headers inside the grace period were removed: %+v", result)
	}

	sweeper.now = func() time.Time { return created.Add(2 * time.Hour) }
	result, err = sweeper.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Packs != 1 || result.Templates != 1 {
		t.Fatalf("result = %+v, want one pack and one template", result)
	}
	if len(invalidated) != 2 || invalidated[0] != query.ScopeBoardPacks || invalidated[1] != query.ScopeBoardTemplates {
		t.Fatalf("invalidated scopes = %v", invalidated)
	}
	if _, err := store.GetPackByID(ctx, kept.ID); err != nil {
		t.Fatalf("pack with sections was removed: %v", err)
	}
}

func TestSweepStopsOnProviderError(t *testing.T) {
	store := memstore.New()
	store.FailNext("DeleteEmptyPacks", storage.ErrTransient)

	sweeper := NewSweeper(store, nil, nil, time.Minute, time.Hour)
	if _, err := sweeper.Sweep(context.Background()); !errors.Is(err, storage.ErrTransient) {
		t.Fatalf("Sweep() error = %v, want transient", err)
	}
}
