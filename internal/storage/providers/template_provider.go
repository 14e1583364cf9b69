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

type TemplateProvider struct {
	db *pgxpool.Pool
}

func NewTemplateProvider(pg *pgxpool.Pool) *TemplateProvider {
	return &TemplateProvider{
		db: pg,
	}
}

const templateColumns = `id, board_id, name, description, company_name, logo_url, created_by, created_at, updated_at`

func (s *TemplateProvider) SaveTemplate(ctx context.Context, template domains.TemplateToSave) (domains.Template, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.Template{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		INSERT INTO board_templates (board_id, name, description, company_name, logo_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+templateColumns,
		template.BoardID, template.Name, template.Description, template.CompanyName, template.LogoURL, template.CreatedBy)
	if err != nil {
		return domains.Template{}, fmt.Errorf("insert template: %w", storage.Classify(err))
	}
	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.Template])
	if err != nil {
		return domains.Template{}, fmt.Errorf("insert template: %w", storage.Classify(err))
	}

	if err := insertTemplateSections(ctx, tx, created.ID, template.Sections); err != nil {
		return domains.Template{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return domains.Template{}, err
	}
	return created, nil
}

func (s *TemplateProvider) UpdateTemplate(ctx context.Context, templateID uuid.UUID, template domains.TemplateToSave) (domains.Template, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.Template{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE board_templates
		SET name = $1,
		    description = $2,
		    company_name = $3,
		    logo_url = $4,
		    updated_at = now()
		WHERE id = $5
		RETURNING `+templateColumns,
		template.Name, template.Description, template.CompanyName, template.LogoURL, templateID)
	if err != nil {
		return domains.Template{}, fmt.Errorf("update template: %w", storage.Classify(err))
	}
	updated, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.Template])
	if err != nil {
		return domains.Template{}, fmt.Errorf("update template: %w", storage.Classify(err))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM template_sections WHERE template_id = $1`, templateID); err != nil {
		return domains.Template{}, fmt.Errorf("clear template sections: %w", storage.Classify(err))
	}
	if err := insertTemplateSections(ctx, tx, templateID, template.Sections); err != nil {
		return domains.Template{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return domains.Template{}, err
	}
	return updated, nil
}

func insertTemplateSections(ctx context.Context, tx pgx.Tx, templateID uuid.UUID, sections []domains.TemplateSectionToSave) error {
	if len(sections) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, section := range sections {
		batch.Queue(`
			INSERT INTO template_sections (template_id, title, order_index, is_required, is_enabled)
			VALUES ($1, $2, $3, $4, $5)`,
			templateID, section.Title, section.OrderIndex, section.IsRequired, section.IsEnabled)
	}

	results := tx.SendBatch(ctx, batch)
	for range sections {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert template section: %w", storage.Classify(err))
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("insert template sections: %w", storage.Classify(err))
	}
	return nil
}

func (s *TemplateProvider) ListTemplatesByBoard(ctx context.Context, boardID uuid.UUID) ([]domains.Template, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+templateColumns+`
		FROM board_templates
		WHERE board_id = $1
		ORDER BY created_at DESC`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", storage.Classify(err))
	}
	templates, err := pgx.CollectRows(rows, pgx.RowToStructByName[domains.Template])
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", storage.Classify(err))
	}
	return templates, nil
}

func (s *TemplateProvider) GetTemplateByID(ctx context.Context, templateID uuid.UUID) (domains.Template, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return domains.Template{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+templateColumns+`
		FROM board_templates
		WHERE id = $1`, templateID)
	if err != nil {
		return domains.Template{}, fmt.Errorf("get template: %w", storage.Classify(err))
	}
	template, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domains.Template])
	if err != nil {
		return domains.Template{}, fmt.Errorf("get template: %w", storage.Classify(err))
	}
	return template, nil
}

func (s *TemplateProvider) GetTemplateSections(ctx context.Context, templateID uuid.UUID) ([]domains.TemplateSection, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, template_id, title, order_index, is_required, is_enabled
		FROM template_sections
		WHERE template_id = $1
		ORDER BY order_index`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list template sections: %w", storage.Classify(err))
	}
	sections, err := pgx.CollectRows(rows, pgx.RowToStructByName[domains.TemplateSection])
	if err != nil {
		return nil, fmt.Errorf("list template sections: %w", storage.Classify(err))
	}
	return sections, nil
}
