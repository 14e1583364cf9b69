package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/storage"

	"github.com/google/uuid"
)

func newPack(t *testing.T, s *Store, titles ...string) (domains.Pack, []domains.PackSection) {
	t.Helper()
	toSave := domains.PackToSave{
		BoardID:     uuid.New(),
		MeetingDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Title:       "March board",
		Status:      domains.PackStatusDraft,
		CreatedBy:   uuid.New(),
	}
	for i, title := range titles {
		toSave.Sections = append(toSave.Sections, domains.PackSectionToSave{Title: title, OrderIndex: i})
	}
	pack, sections, err := s.SavePack(context.Background(), toSave)
	if err != nil {
		t.Fatalf("save pack: %v", err)
	}
	return pack, sections
}

func textDoc(sectionID uuid.UUID, text string) domains.DocumentToSave {
	return domains.DocumentToSave{
		SectionID: sectionID,
		Content:   domains.SectionContent{Kind: domains.ContentFreeformText, Text: text},
		CreatedBy: uuid.New(),
	}
}

func TestSaveTemplateRejectsDuplicateOrderIndex(t *testing.T) {
	s := New()
	_, err := s.SaveTemplate(context.Background(), domains.TemplateToSave{
		BoardID: uuid.New(),
		Name:    "Quarterly",
		Sections: []domains.TemplateSectionToSave{
			{Title: "Finance", OrderIndex: 0, IsEnabled: true},
			{Title: "Risk", OrderIndex: 0, IsEnabled: true},
		},
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(s.templates) != 0 {
		t.Fatalf("template header persisted without sections")
	}
}

func TestSavePackUnknownTemplate(t *testing.T) {
	s := New()
	missing := uuid.New()
	_, _, err := s.SavePack(context.Background(), domains.PackToSave{
		BoardID:    uuid.New(),
		TemplateID: &missing,
		Status:     domains.PackStatusDraft,
	})
	if !errors.Is(err, storage.ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}
}

func TestSubmitDocumentMovesPointer(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, sections := newPack(t, s, "Finance")
	sectionID := sections[0].ID

	first, err := s.SubmitDocument(ctx, textDoc(sectionID, "draft"))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := s.SubmitDocument(ctx, textDoc(sectionID, "final"))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if first.Document.VersionNumber != 1 || second.Document.VersionNumber != 2 {
		t.Fatalf("versions = %d, %d; want 1, 2", first.Document.VersionNumber, second.Document.VersionNumber)
	}
	if second.Section.Status != domains.SectionStatusSubmitted {
		t.Fatalf("status = %q", second.Section.Status)
	}
	if second.Section.DocumentID == nil || *second.Section.DocumentID != second.Document.ID {
		t.Fatalf("pointer does not reference newest document")
	}
}

func TestSubmitDocumentUnknownSection(t *testing.T) {
	s := New()
	_, err := s.SubmitDocument(context.Background(), textDoc(uuid.New(), "x"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFailNextIsConsumedOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.FailNext("GetPackByID", storage.ErrTransient)

	_, err := s.GetPackByID(ctx, uuid.New())
	if !errors.Is(err, storage.ErrTransient) {
		t.Fatalf("expected injected error, got %v", err)
	}
	_, err = s.GetPackByID(ctx, uuid.New())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after injection drained, got %v", err)
	}
}

// legacySubmit is the pre-transactional submission flow: read the latest version, insert the next
// one and move the pointer as three independent writes. The barrier lets the test interleave two
// callers between the read and the insert.
func legacySubmit(s *Store, sectionID uuid.UUID, text string, afterRead *sync.WaitGroup) {
	s.mu.Lock()
	latest := 0
	for _, id := range s.sectionDocs[sectionID] {
		if v := s.documents[id].VersionNumber; v > latest {
			latest = v
		}
	}
	s.mu.Unlock()

	afterRead.Done()
	afterRead.Wait()

	s.mu.Lock()
	document := domains.SectionDocument{
		ID:            uuid.New(),
		SectionID:     sectionID,
		Content:       domains.SectionContent{Kind: domains.ContentFreeformText, Text: text},
		VersionNumber: latest + 1,
		CreatedAt:     s.now(),
	}
	s.documents[document.ID] = document
	s.sectionDocs[sectionID] = append(s.sectionDocs[sectionID], document.ID)
	s.mu.Unlock()

	s.mu.Lock()
	section := s.sections[sectionID]
	section.DocumentID = &document.ID
	section.Status = domains.SectionStatusSubmitted
	s.sections[sectionID] = section
	s.mu.Unlock()
}

func TestLegacySubmitRaceIsDetected(t *testing.T) {
	s := New()
	_, sections := newPack(t, s, "Finance")
	sectionID := sections[0].ID

	var afterRead, done sync.WaitGroup
	afterRead.Add(2)
	done.Add(2)
	for _, text := range []string{"A", "B"} {
		go func(text string) {
			defer done.Done()
			legacySubmit(s, sectionID, text, &afterRead)
		}(text)
	}
	done.Wait()

	anomalies, err := s.ListVersionAnomalies(context.Background())
	if err != nil {
		t.Fatalf("list anomalies: %v", err)
	}

	var duplicate *domains.VersionAnomaly
	for i := range anomalies {
		if anomalies[i].Kind == domains.AnomalyDuplicateVersion {
			duplicate = &anomalies[i]
		}
	}
	if duplicate == nil {
		t.Fatalf("expected a duplicate version anomaly, got %+v", anomalies)
	}
	if duplicate.SectionID != sectionID || duplicate.VersionNumber != 1 || duplicate.Documents != 2 {
		t.Fatalf("unexpected anomaly %+v", *duplicate)
	}
}

func TestConcurrentSubmitsProduceUniqueVersions(t *testing.T) {
	s := New()
	_, sections := newPack(t, s, "Finance")
	sectionID := sections[0].ID

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.SubmitDocument(context.Background(), textDoc(sectionID, "report")); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("submit: %v", err)
	}

	documents, err := s.ListSectionDocuments(context.Background(), sectionID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(documents) != writers {
		t.Fatalf("got %d documents, want %d", len(documents), writers)
	}
	for i, document := range documents {
		if document.VersionNumber != i+1 {
			t.Fatalf("document %d has version %d", i, document.VersionNumber)
		}
	}

	section, err := s.GetSectionByID(context.Background(), sectionID)
	if err != nil {
		t.Fatalf("get section: %v", err)
	}
	latest := documents[len(documents)-1]
	if section.DocumentID == nil || *section.DocumentID != latest.ID {
		t.Fatalf("pointer is not on version %d", latest.VersionNumber)
	}

	anomalies, err := s.ListVersionAnomalies(context.Background())
	if err != nil {
		t.Fatalf("list anomalies: %v", err)
	}
	if len(anomalies) != 0 {
		t.Fatalf("unexpected anomalies %+v", anomalies)
	}
}

func TestDeleteEmptyRespectsGraceAndReferences(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })

	orphanTemplate, err := s.SaveTemplate(ctx, domains.TemplateToSave{BoardID: uuid.New(), Name: "empty"})
	if err != nil {
		t.Fatal(err)
	}
	referenced, err := s.SaveTemplate(ctx, domains.TemplateToSave{BoardID: uuid.New(), Name: "in use"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.SavePack(ctx, domains.PackToSave{TemplateID: &referenced.ID, Status: domains.PackStatusDraft}); err != nil {
		t.Fatal(err)
	}
	newPack(t, s, "Finance")

	if n, err := s.DeleteEmptyPacks(ctx, base); err != nil || n != 0 {
		t.Fatalf("grace period ignored: n=%d err=%v", n, err)
	}

	cutoff := base.Add(time.Hour)
	packs, err := s.DeleteEmptyPacks(ctx, cutoff)
	if err != nil || packs != 1 {
		t.Fatalf("delete packs: n=%d err=%v", packs, err)
	}
	templates, err := s.DeleteEmptyTemplates(ctx, cutoff)
	if err != nil || templates != 2 {
		t.Fatalf("delete templates: n=%d err=%v", templates, err)
	}
	if _, err := s.GetTemplateByID(ctx, orphanTemplate.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("orphan template survived: %v", err)
	}
}
