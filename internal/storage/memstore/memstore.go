// Package memstore is an in-process implementation of the storage providers. It backs the
// "memory" storage driver used for local development and the package tests of the service layer.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/storage"

	"github.com/google/uuid"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	templates        map[uuid.UUID]domains.Template
	templateOrder    []uuid.UUID
	templateSections map[uuid.UUID][]domains.TemplateSection

	packs        map[uuid.UUID]domains.Pack
	packOrder    []uuid.UUID
	sections     map[uuid.UUID]domains.PackSection
	packSections map[uuid.UUID][]uuid.UUID

	documents   map[uuid.UUID]domains.SectionDocument
	sectionDocs map[uuid.UUID][]uuid.UUID

	failures map[string][]error
}

func New() *Store {
	return &Store{
		now:              func() time.Time { return time.Now().UTC() },
		templates:        make(map[uuid.UUID]domains.Template),
		templateSections: make(map[uuid.UUID][]domains.TemplateSection),
		packs:            make(map[uuid.UUID]domains.Pack),
		sections:         make(map[uuid.UUID]domains.PackSection),
		packSections:     make(map[uuid.UUID][]uuid.UUID),
		documents:        make(map[uuid.UUID]domains.SectionDocument),
		sectionDocs:      make(map[uuid.UUID][]uuid.UUID),
		failures:         make(map[string][]error),
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNext makes the next call of the named operation (the method name, e.g. "SubmitDocument")
// return err before touching any state. Calls queue up in order.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

func (s *Store) injected(op string) error {
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.failures[op] = queue[1:]
	return err
}

func (s *Store) enter(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.injected(op); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

func (s *Store) SaveTemplate(ctx context.Context, template domains.TemplateToSave) (domains.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "SaveTemplate"); err != nil {
		return domains.Template{}, err
	}

	now := s.now()
	created := domains.Template{
		ID:          uuid.New(),
		BoardID:     template.BoardID,
		Name:        template.Name,
		Description: template.Description,
		CompanyName: template.CompanyName,
		LogoURL:     template.LogoURL,
		CreatedBy:   template.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sections, err := buildTemplateSections(created.ID, template.Sections)
	if err != nil {
		return domains.Template{}, fmt.Errorf("insert template sections: %w", err)
	}

	s.templates[created.ID] = created
	s.templateOrder = append(s.templateOrder, created.ID)
	s.templateSections[created.ID] = sections
	return created, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, templateID uuid.UUID, template domains.TemplateToSave) (domains.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "UpdateTemplate"); err != nil {
		return domains.Template{}, err
	}

	existing, ok := s.templates[templateID]
	if !ok {
		return domains.Template{}, notFound("update template")
	}
	sections, err := buildTemplateSections(templateID, template.Sections)
	if err != nil {
		return domains.Template{}, fmt.Errorf("insert template sections: %w", err)
	}

	existing.Name = template.Name
	existing.Description = template.Description
	existing.CompanyName = template.CompanyName
	existing.LogoURL = template.LogoURL
	existing.UpdatedAt = s.now()
	s.templates[templateID] = existing
	s.templateSections[templateID] = sections
	return existing, nil
}

func buildTemplateSections(templateID uuid.UUID, input []domains.TemplateSectionToSave) ([]domains.TemplateSection, error) {
	seen := make(map[int]bool, len(input))
	sections := make([]domains.TemplateSection, 0, len(input))
	for _, section := range input {
		if seen[section.OrderIndex] {
			return nil, storage.ErrConflict
		}
		if section.IsRequired && !section.IsEnabled {
			return nil, storage.ErrInvalidData
		}
		seen[section.OrderIndex] = true
		sections = append(sections, domains.TemplateSection{
			ID:         uuid.New(),
			TemplateID: templateID,
			Title:      section.Title,
			OrderIndex: section.OrderIndex,
			IsRequired: section.IsRequired,
			IsEnabled:  section.IsEnabled,
		})
	}
	return sections, nil
}

func (s *Store) ListTemplatesByBoard(ctx context.Context, boardID uuid.UUID) ([]domains.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListTemplatesByBoard"); err != nil {
		return nil, err
	}

	templates := make([]domains.Template, 0)
	for i := len(s.templateOrder) - 1; i >= 0; i-- {
		template := s.templates[s.templateOrder[i]]
		if template.BoardID == boardID {
			templates = append(templates, template)
		}
	}
	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].CreatedAt.After(templates[j].CreatedAt)
	})
	return templates, nil
}

func (s *Store) GetTemplateByID(ctx context.Context, templateID uuid.UUID) (domains.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GetTemplateByID"); err != nil {
		return domains.Template{}, err
	}

	template, ok := s.templates[templateID]
	if !ok {
		return domains.Template{}, notFound("get template")
	}
	return template, nil
}

func (s *Store) GetTemplateSections(ctx context.Context, templateID uuid.UUID) ([]domains.TemplateSection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GetTemplateSections"); err != nil {
		return nil, err
	}

	sections := slices.Clone(s.templateSections[templateID])
	if sections == nil {
		sections = []domains.TemplateSection{}
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].OrderIndex < sections[j].OrderIndex
	})
	return sections, nil
}

func (s *Store) SavePack(ctx context.Context, pack domains.PackToSave) (domains.Pack, []domains.PackSection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "SavePack"); err != nil {
		return domains.Pack{}, nil, err
	}

	if pack.TemplateID != nil {
		if _, ok := s.templates[*pack.TemplateID]; !ok {
			return domains.Pack{}, nil, fmt.Errorf("insert pack: %w", storage.ErrReference)
		}
	}

	now := s.now()
	created := domains.Pack{
		ID:          uuid.New(),
		BoardID:     pack.BoardID,
		TemplateID:  pack.TemplateID,
		MeetingDate: pack.MeetingDate,
		Title:       pack.Title,
		Status:      pack.Status,
		CreatedBy:   pack.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	sections := make([]domains.PackSection, 0, len(pack.Sections))
	for _, section := range pack.Sections {
		sections = append(sections, domains.PackSection{
			ID:          uuid.New(),
			PackID:      created.ID,
			Title:       section.Title,
			OrderIndex:  section.OrderIndex,
			Status:      domains.SectionStatusPending,
			NextVersion: 1,
		})
	}

	s.packs[created.ID] = created
	s.packOrder = append(s.packOrder, created.ID)
	ids := make([]uuid.UUID, 0, len(sections))
	for _, section := range sections {
		s.sections[section.ID] = section
		ids = append(ids, section.ID)
	}
	s.packSections[created.ID] = ids
	return created, sections, nil
}

func (s *Store) GetPackByID(ctx context.Context, packID uuid.UUID) (domains.Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GetPackByID"); err != nil {
		return domains.Pack{}, err
	}

	pack, ok := s.packs[packID]
	if !ok {
		return domains.Pack{}, notFound("get pack")
	}
	return pack, nil
}

func (s *Store) ListPacksByBoard(ctx context.Context, boardID uuid.UUID) ([]domains.PackSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListPacksByBoard"); err != nil {
		return nil, err
	}

	summaries := make([]domains.PackSummary, 0)
	for i := len(s.packOrder) - 1; i >= 0; i-- {
		pack := s.packs[s.packOrder[i]]
		if pack.BoardID != boardID {
			continue
		}
		summary := domains.PackSummary{Pack: pack}
		for _, id := range s.packSections[pack.ID] {
			summary.TotalSections++
			if s.sections[id].Status == domains.SectionStatusSubmitted {
				summary.SubmittedSections++
			}
		}
		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].MeetingDate.Equal(summaries[j].MeetingDate) {
			return summaries[i].MeetingDate.After(summaries[j].MeetingDate)
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *Store) UpdatePack(ctx context.Context, packID uuid.UUID, update domains.PackUpdate) (domains.Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "UpdatePack"); err != nil {
		return domains.Pack{}, err
	}

	pack, ok := s.packs[packID]
	if !ok {
		return domains.Pack{}, notFound("update pack")
	}
	if !update.HasChanges() {
		return pack, nil
	}
	if update.Title != nil {
		pack.Title = *update.Title
	}
	if update.MeetingDate != nil {
		pack.MeetingDate = *update.MeetingDate
	}
	if update.Status != nil {
		if !domains.IsKnownPackStatus(*update.Status) {
			return domains.Pack{}, fmt.Errorf("update pack: %w", storage.ErrInvalidData)
		}
		pack.Status = *update.Status
	}
	pack.UpdatedAt = s.now()
	s.packs[packID] = pack
	return pack, nil
}

func (s *Store) GetSectionByID(ctx context.Context, sectionID uuid.UUID) (domains.PackSection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GetSectionByID"); err != nil {
		return domains.PackSection{}, err
	}

	section, ok := s.sections[sectionID]
	if !ok {
		return domains.PackSection{}, notFound("get section")
	}
	return section, nil
}

func (s *Store) GetPackSections(ctx context.Context, packID uuid.UUID) ([]domains.PackSectionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GetPackSections"); err != nil {
		return nil, err
	}

	views := make([]domains.PackSectionView, 0, len(s.packSections[packID]))
	for _, id := range s.packSections[packID] {
		view := domains.PackSectionView{PackSection: s.sections[id]}
		if view.DocumentID != nil {
			if document, ok := s.documents[*view.DocumentID]; ok {
				view.Document = &document
			}
		}
		views = append(views, view)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].OrderIndex < views[j].OrderIndex
	})
	return views, nil
}

func (s *Store) SubmitDocument(ctx context.Context, doc domains.DocumentToSave) (domains.SubmissionResult, error) {
	if _, err := doc.Content.Canonical(); err != nil {
		return domains.SubmissionResult{}, fmt.Errorf("encode content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "SubmitDocument"); err != nil {
		return domains.SubmissionResult{}, err
	}

	section, ok := s.sections[doc.SectionID]
	if !ok {
		return domains.SubmissionResult{}, notFound("claim version")
	}
	version := section.NextVersion
	section.NextVersion++

	document := domains.SectionDocument{
		ID:            uuid.New(),
		SectionID:     doc.SectionID,
		Content:       doc.Content,
		VersionNumber: version,
		ContentDigest: doc.ContentDigest,
		CreatedBy:     doc.CreatedBy,
		CreatedAt:     s.now(),
	}
	s.documents[document.ID] = document
	s.sectionDocs[doc.SectionID] = append(s.sectionDocs[doc.SectionID], document.ID)

	documentID := document.ID
	section.DocumentID = &documentID
	section.Status = domains.SectionStatusSubmitted
	s.sections[section.ID] = section

	return domains.SubmissionResult{Section: section, Document: document}, nil
}

func (s *Store) ListSectionDocuments(ctx context.Context, sectionID uuid.UUID) ([]domains.SectionDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListSectionDocuments"); err != nil {
		return nil, err
	}

	documents := make([]domains.SectionDocument, 0, len(s.sectionDocs[sectionID]))
	for _, id := range s.sectionDocs[sectionID] {
		documents = append(documents, s.documents[id])
	}
	sort.SliceStable(documents, func(i, j int) bool {
		return documents[i].VersionNumber < documents[j].VersionNumber
	})
	return documents, nil
}

func (s *Store) GetSectionDocument(ctx context.Context, sectionID uuid.UUID, version int) (domains.SectionDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GetSectionDocument"); err != nil {
		return domains.SectionDocument{}, err
	}

	ids := s.sectionDocs[sectionID]
	for i := len(ids) - 1; i >= 0; i-- {
		if document := s.documents[ids[i]]; document.VersionNumber == version {
			return document, nil
		}
	}
	return domains.SectionDocument{}, notFound("get document")
}

func (s *Store) DeleteEmptyPacks(ctx context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "DeleteEmptyPacks"); err != nil {
		return 0, err
	}

	var deleted int64
	kept := s.packOrder[:0]
	for _, id := range s.packOrder {
		pack := s.packs[id]
		if len(s.packSections[id]) == 0 && pack.CreatedAt.Before(createdBefore) {
			delete(s.packs, id)
			delete(s.packSections, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	s.packOrder = kept
	return deleted, nil
}

func (s *Store) DeleteEmptyTemplates(ctx context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "DeleteEmptyTemplates"); err != nil {
		return 0, err
	}

	referenced := make(map[uuid.UUID]bool)
	for _, pack := range s.packs {
		if pack.TemplateID != nil {
			referenced[*pack.TemplateID] = true
		}
	}

	var deleted int64
	kept := s.templateOrder[:0]
	for _, id := range s.templateOrder {
		template := s.templates[id]
		if len(s.templateSections[id]) == 0 && !referenced[id] && template.CreatedAt.Before(createdBefore) {
			delete(s.templates, id)
			delete(s.templateSections, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	s.templateOrder = kept
	return deleted, nil
}

func (s *Store) ListVersionAnomalies(ctx context.Context) ([]domains.VersionAnomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListVersionAnomalies"); err != nil {
		return nil, err
	}

	anomalies := make([]domains.VersionAnomaly, 0)
	for sectionID, ids := range s.sectionDocs {
		counts := make(map[int]int)
		for _, id := range ids {
			counts[s.documents[id].VersionNumber]++
		}
		for version, n := range counts {
			if n > 1 {
				anomalies = append(anomalies, domains.VersionAnomaly{
					Kind:          domains.AnomalyDuplicateVersion,
					SectionID:     sectionID,
					VersionNumber: version,
					Documents:     n,
				})
			}
		}

		section := s.sections[sectionID]
		current := 0
		if section.DocumentID != nil {
			current = s.documents[*section.DocumentID].VersionNumber
		}
		for _, id := range ids {
			document := s.documents[id]
			if section.DocumentID != nil && *section.DocumentID == id {
				continue
			}
			if section.DocumentID == nil || document.VersionNumber > current {
				anomalies = append(anomalies, domains.VersionAnomaly{
					Kind:          domains.AnomalyUnreferencedDocument,
					SectionID:     sectionID,
					VersionNumber: document.VersionNumber,
					Documents:     1,
				})
			}
		}
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		if anomalies[i].SectionID != anomalies[j].SectionID {
			return anomalies[i].SectionID.String() < anomalies[j].SectionID.String()
		}
		if anomalies[i].VersionNumber != anomalies[j].VersionNumber {
			return anomalies[i].VersionNumber < anomalies[j].VersionNumber
		}
		return anomalies[i].Kind < anomalies[j].Kind
	})
	return anomalies, nil
}
