package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"boardpacks/internal/actor"
	"boardpacks/internal/domains"
	"boardpacks/internal/query"
	"boardpacks/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type templateFile struct {
	BoardID     string                `yaml:"board_id"`
	Name        string                `yaml:"name"`
	Description *string               `yaml:"description"`
	CompanyName *string               `yaml:"company_name"`
	LogoURL     *string               `yaml:"logo_url"`
	Sections    []templateFileSection `yaml:"sections"`
}

type templateFileSection struct {
	Title      string `yaml:"title"`
	OrderIndex *int   `yaml:"order_index"`
	Required   bool   `yaml:"required"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled"`
}

// parseTemplateFile decodes a template definition. A non-nil board overrides board_id from the
// file.
func parseTemplateFile(r io.Reader, board *uuid.UUID) (domains.TemplateCreate, error) {
	var file templateFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return domains.TemplateCreate{}, fmt.Errorf("decode template file: %w", err)
	}

	boardID := uuid.Nil
	if board != nil {
		boardID = *board
	} else if file.BoardID != "" {
		parsed, err := uuid.Parse(file.BoardID)
		if err != nil {
			return domains.TemplateCreate{}, fmt.Errorf("board_id: %w", err)
		}
		boardID = parsed
	}

	sections := make([]domains.TemplateSectionCreate, 0, len(file.Sections))
	for _, section := range file.Sections {
		enabled := section.Enabled == nil || *section.Enabled
		sections = append(sections, domains.TemplateSectionCreate{
			Title:      section.Title,
			OrderIndex: section.OrderIndex,
			IsRequired: section.Required,
			IsEnabled:  enabled,
		})
	}

	return domains.TemplateCreate{
		BoardID:     boardID,
		Name:        file.Name,
		Description: file.Description,
		CompanyName: file.CompanyName,
		LogoURL:     file.LogoURL,
		Sections:    sections,
	}, nil
}

func NewTemplateCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "template",
		GroupID: "actions",
		Short:   "Manage board pack templates",
	}
	parent.AddCommand(cmd)

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import creates a template from a YAML definition",
		Long: `Import creates a template from a YAML definition. For example:

packctl template import monthly.yaml --as 5f0c...

Will create the template described in monthly.yaml on behalf of the given user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(mustString(cmd, "as"))
			if err != nil {
				return fmt.Errorf("--as must be a user id: %w", err)
			}
			var board *uuid.UUID
			if raw := mustString(cmd, "board"); raw != "" {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("--board: %w", err)
				}
				board = &parsed
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			create, err := parseTemplateFile(f, board)
			if err != nil {
				return err
			}

			all, db, err := openProviders()
			if err != nil {
				return err
			}
			defer db.Close()

			q, err := query.New(query.DefaultConfig(), nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(actor.With(cmd.Context(), userID), 30*time.Second)
			defer cancel()

			template, err := service.NewTemplateService(all.TemplateProvider, q).CreateTemplate(ctx, create)
			if err != nil {
				return errors.New(query.Message(err))
			}
			cmd.Printf("created template %s (%s) with %d sections\n", template.Name, template.ID, len(create.Sections))
			return nil
		},
	}
	importCmd.Flags().String("as", "", "id of the user the template is created for")
	importCmd.Flags().String("board", "", "board id, overrides board_id in the file")
	_ = importCmd.MarkFlagRequired("as")
	cmd.AddCommand(importCmd)
}

func mustString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	cobra.CheckErr(err)
	return value
}
