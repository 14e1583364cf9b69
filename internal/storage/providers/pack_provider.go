package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PackProvider struct {
	db *pgxpool.Pool
}

func NewPackProvider(db *pgxpool.Pool) *PackProvider {
	return &PackProvider{
		db: db,
	}
}

const (
	packColumns    = `id, board_id, template_id, meeting_date, title, status, created_by, created_at, updated_at`
	sectionColumns = `id, pack_id, title, order_index, status, document_id, next_version`
)

// SavePack writes the pack header and every cloned section in one transaction, so a pack is never
// visible without its sections.
func (s *PackProvider) SavePack(ctx context.Context, pack domains.PackToSave) (domains.Pack, []domains.PackSection, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.Pack{}, nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		INSERT INTO board_packs (board_id, template_id, meeting_date, title, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+packColumns,
		pack.BoardID, pack.TemplateID, pack.MeetingDate, pack.Title, pack.Status, pack.CreatedBy)
	if err != nil {
		return domains.Pack{}, nil, fmt.Errorf("insert pack: %w", storage.Classify(err))
	}
	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.Pack])
	if err != nil {
		return domains.Pack{}, nil, fmt.Errorf("insert pack: %w", storage.Classify(err))
	}

	const insertSection = `
		INSERT INTO pack_sections (pack_id, title, order_index, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + sectionColumns

	sections := make([]domains.PackSection, 0, len(pack.Sections))
	for _, section := range pack.Sections {
		rows, err := tx.Query(ctx, insertSection, created.ID, section.Title, section.OrderIndex, domains.SectionStatusPending)
		if err != nil {
			return domains.Pack{}, nil, fmt.Errorf("insert pack section: %w", storage.Classify(err))
		}
		inserted, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.PackSection])
		if err != nil {
			return domains.Pack{}, nil, fmt.Errorf("insert pack section: %w", storage.Classify(err))
		}
		sections = append(sections, inserted)
	}

	if err := commit(ctx, tx); err != nil {
		return domains.Pack{}, nil, err
	}
	return created, sections, nil
}

func (s *PackProvider) GetPackByID(ctx context.Context, packID uuid.UUID) (domains.Pack, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.Pack{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT `+packColumns+` FROM board_packs WHERE id = $1`, packID)
	if err != nil {
		return domains.Pack{}, fmt.Errorf("get pack: %w", storage.Classify(err))
	}
	pack, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.Pack])
	if err != nil {
		return domains.Pack{}, fmt.Errorf("get pack: %w", storage.Classify(err))
	}
	return pack, nil
}

func (s *PackProvider) ListPacksByBoard(ctx context.Context, boardID uuid.UUID) ([]domains.PackSummary, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT
			p.id, p.board_id, p.template_id, p.meeting_date, p.title, p.status,
			p.created_by, p.created_at, p.updated_at,
			COALESCE(stats.total_sections, 0) AS total_sections,
			COALESCE(stats.submitted_sections, 0) AS submitted_sections
		FROM board_packs p
		LEFT JOIN LATERAL (
			SELECT
				COUNT(*) AS total_sections,
				COUNT(*) FILTER (WHERE ps.status = 'submitted') AS submitted_sections
			FROM pack_sections ps
			WHERE ps.pack_id = p.id
		) AS stats ON true
		WHERE p.board_id = $1
		ORDER BY p.meeting_date DESC, p.created_at DESC`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", storage.Classify(err))
	}
	packs, err := pgx.CollectRows(rows, pgx.RowToStructByName[domains.PackSummary])
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", storage.Classify(err))
	}
	return packs, nil
}

func (s *PackProvider) UpdatePack(ctx context.Context, packID uuid.UUID, update domains.PackUpdate) (domains.Pack, error) {
	setClauses := make([]string, 0, 4)
	args := make([]any, 0, 4)
	idx := 1

	if update.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", idx))
		args = append(args, *update.Title)
		idx++
	}
	if update.MeetingDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("meeting_date = $%d", idx))
		args = append(args, *update.MeetingDate)
		idx++
	}
	if update.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, *update.Status)
		idx++
	}
	if len(setClauses) == 0 {
		return s.GetPackByID(ctx, packID)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, packID)
	query := fmt.Sprintf(`
		UPDATE board_packs
		SET %s
		WHERE id = $%d
		RETURNING `+packColumns,
		strings.Join(setClauses, ", "), idx,
	)

	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.Pack{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return domains.Pack{}, fmt.Errorf("update pack: %w", storage.Classify(err))
	}
	updated, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.Pack])
	if err != nil {
		return domains.Pack{}, fmt.Errorf("update pack: %w", storage.Classify(err))
	}
	if err := commit(ctx, tx); err != nil {
		return domains.Pack{}, err
	}
	return updated, nil
}

func (s *PackProvider) GetSectionByID(ctx context.Context, sectionID uuid.UUID) (domains.PackSection, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.PackSection{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT `+sectionColumns+` FROM pack_sections WHERE id = $1`, sectionID)
	if err != nil {
		return domains.PackSection{}, fmt.Errorf("get section: %w", storage.Classify(err))
	}
	section, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.PackSection])
	if err != nil {
		return domains.PackSection{}, fmt.Errorf("get section: %w", storage.Classify(err))
	}
	return section, nil
}

// GetPackSections returns the sections of a pack, each joined with the document its pointer
// refers to, ordered by order_index.
func (s *PackProvider) GetPackSections(ctx context.Context, packID uuid.UUID) ([]domains.PackSectionView, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT
			ps.id, ps.pack_id, ps.title, ps.order_index, ps.status, ps.document_id, ps.next_version,
			d.id, d.section_id, d.content, d.version_number, d.content_digest, d.created_by, d.created_at
		FROM pack_sections ps
		LEFT JOIN section_documents d ON d.id = ps.document_id
		WHERE ps.pack_id = $1
		ORDER BY ps.order_index, ps.id`, packID)
	if err != nil {
		return nil, fmt.Errorf("list pack sections: %w", storage.Classify(err))
	}
	defer rows.Close()

	views := make([]domains.PackSectionView, 0)
	for rows.Next() {
		var (
			view          domains.PackSectionView
			docID         *uuid.UUID
			docSectionID  *uuid.UUID
			content       []byte
			versionNumber *int
			digest        *string
			createdBy     *uuid.UUID
			createdAt     *time.Time
		)
		if err := rows.Scan(
			&view.ID,
			&view.PackID,
			&view.Title,
			&view.OrderIndex,
			&view.Status,
			&view.DocumentID,
			&view.NextVersion,
			&docID,
			&docSectionID,
			&content,
			&versionNumber,
			&digest,
			&createdBy,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan pack section: %w", storage.Classify(err))
		}

		if docID != nil {
			view.Document = &domains.SectionDocument{
				ID:            *docID,
				SectionID:     *docSectionID,
				Content:       domains.DecodeStoredContent(content),
				VersionNumber: *versionNumber,
				ContentDigest: *digest,
				CreatedBy:     *createdBy,
				CreatedAt:     *createdAt,
			}
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pack sections: %w", storage.Classify(err))
	}
	return views, nil
}
