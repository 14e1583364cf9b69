package providers

import (
	"context"
	"fmt"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaintenanceProvider cleans up rows left behind by writes that predate transactional creation.
type MaintenanceProvider struct {
	db *pgxpool.Pool
}

func NewMaintenanceProvider(db *pgxpool.Pool) *MaintenanceProvider {
	return &MaintenanceProvider{
		db: db,
	}
}

func (s *MaintenanceProvider) DeleteEmptyPacks(ctx context.Context, createdBefore time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM board_packs p
		WHERE p.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM pack_sections ps WHERE ps.pack_id = p.id)`, createdBefore)
	if err != nil {
		return 0, fmt.Errorf("delete empty packs: %w", storage.Classify(err))
	}
	return tag.RowsAffected(), nil
}

func (s *MaintenanceProvider) DeleteEmptyTemplates(ctx context.Context, createdBefore time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM board_templates t
		WHERE t.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM template_sections ts WHERE ts.template_id = t.id)
		  AND NOT EXISTS (SELECT 1 FROM board_packs p WHERE p.template_id = t.id)`, createdBefore)
	if err != nil {
		return 0, fmt.Errorf("delete empty templates: %w", storage.Classify(err))
	}
	return tag.RowsAffected(), nil
}

func (s *MaintenanceProvider) ListVersionAnomalies(ctx context.Context) ([]domains.VersionAnomaly, error) {
	rows, err := s.db.Query(ctx, `
		SELECT 'duplicate_version' AS kind, d.section_id, d.version_number, COUNT(*)::int AS documents
		FROM section_documents d
		GROUP BY d.section_id, d.version_number
		HAVING COUNT(*) > 1
		UNION ALL
		SELECT 'unreferenced_document' AS kind, d.section_id, d.version_number, 1 AS documents
		FROM section_documents d
		JOIN pack_sections ps ON ps.id = d.section_id
		LEFT JOIN section_documents cur ON cur.id = ps.document_id
		WHERE d.id IS DISTINCT FROM ps.document_id
		  AND (cur.id IS NULL OR d.version_number > cur.version_number)
		ORDER BY section_id, version_number`)
	if err != nil {
		return nil, fmt.Errorf("list version anomalies: %w", storage.Classify(err))
	}
	anomalies, err := pgx.CollectRows(rows, pgx.RowToStructByName[domains.VersionAnomaly])
	if err != nil {
		return nil, fmt.Errorf("list version anomalies: %w", storage.Classify(err))
	}
	return anomalies, nil
}
