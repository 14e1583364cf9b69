package providers

import (
	"context"
	"fmt"

	"boardpacks/internal/domains"
	"boardpacks/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentProvider struct {
	db *pgxpool.Pool
}

func NewDocumentProvider(db *pgxpool.Pool) *DocumentProvider {
	return &DocumentProvider{
		db: db,
	}
}

const documentColumns = `id, section_id, content, version_number, content_digest, created_by, created_at`

// SubmitDocument claims the next version number from the section row, appends the document and
// moves the section pointer, all inside one transaction. The row lock taken by the counter update
// serializes concurrent submissions to the same section.
func (s *DocumentProvider) SubmitDocument(ctx context.Context, doc domains.DocumentToSave) (domains.SubmissionResult, error) {
	content, err := doc.Content.Canonical()
	if err != nil {
		return domains.SubmissionResult{}, fmt.Errorf("encode content: %w", err)
	}

	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.SubmissionResult{}, err
	}
	defer tx.Rollback(ctx)

	var version int
	if err := tx.QueryRow(ctx, `
		UPDATE pack_sections
		SET next_version = next_version + 1
		WHERE id = $1
		RETURNING next_version - 1`, doc.SectionID).Scan(&version); err != nil {
		return domains.SubmissionResult{}, fmt.Errorf("claim version: %w", storage.Classify(err))
	}

	created, err := scanDocument(tx.QueryRow(ctx, `
		INSERT INTO section_documents (section_id, content, version_number, content_digest, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+documentColumns,
		doc.SectionID, content, version, doc.ContentDigest, doc.CreatedBy))
	if err != nil {
		return domains.SubmissionResult{}, fmt.Errorf("insert document: %w", storage.Classify(err))
	}

	rows, err := tx.Query(ctx, `
		UPDATE pack_sections
		SET document_id = $1, status = $2
		WHERE id = $3
		RETURNING `+sectionColumns,
		created.ID, domains.SectionStatusSubmitted, doc.SectionID)
	if err != nil {
		return domains.SubmissionResult{}, fmt.Errorf("point section at document: %w", storage.Classify(err))
	}
	section, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.PackSection])
	if err != nil {
		return domains.SubmissionResult{}, fmt.Errorf("point section at document: %w", storage.Classify(err))
	}

	if err := commit(ctx, tx); err != nil {
		return domains.SubmissionResult{}, err
	}
	return domains.SubmissionResult{Section: section, Document: created}, nil
}

func (s *DocumentProvider) ListSectionDocuments(ctx context.Context, sectionID uuid.UUID) ([]domains.SectionDocument, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+documentColumns+`
		FROM section_documents
		WHERE section_id = $1
		ORDER BY version_number, created_at`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", storage.Classify(err))
	}
	defer rows.Close()

	documents := make([]domains.SectionDocument, 0)
	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", storage.Classify(err))
		}
		documents = append(documents, document)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", storage.Classify(err))
	}
	return documents, nil
}

func (s *DocumentProvider) GetSectionDocument(ctx context.Context, sectionID uuid.UUID, version int) (domains.SectionDocument, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.SectionDocument{}, err
	}
	defer tx.Rollback(ctx)

	document, err := scanDocument(tx.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM section_documents
		WHERE section_id = $1 AND version_number = $2
		ORDER BY created_at DESC
		LIMIT 1`, sectionID, version))
	if err != nil {
		return domains.SectionDocument{}, fmt.Errorf("get document: %w", storage.Classify(err))
	}
	return document, nil
}

func scanDocument(row pgx.Row) (domains.SectionDocument, error) {
	var (
		document domains.SectionDocument
		content  []byte
	)
	if err := row.Scan(
		&document.ID,
		&document.SectionID,
		&content,
		&document.VersionNumber,
		&document.ContentDigest,
		&document.CreatedBy,
		&document.CreatedAt,
	); err != nil {
		return domains.SectionDocument{}, err
	}
	document.Content = domains.DecodeStoredContent(content)
	return document, nil
}
