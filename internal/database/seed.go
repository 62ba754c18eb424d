package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"workspacegen/internal/models"
	"workspacegen/internal/store"
)

// Seed populates an empty template store with a welcome template so a fresh
// development install has something to preview and export. It is a no-op
// when any template exists.
func Seed(templates store.TemplateStore) error {
	count, err := templates.Count()
	if err != nil {
		return fmt.Errorf("seed check templates: %w", err)
	}
	if count > 0 {
		slog.Info("template store already seeded, skipping")
		return nil
	}

	t := WelcomeTemplate(time.Now().UTC())
	if err := templates.Save(&t); err != nil {
		return fmt.Errorf("seed insert welcome template: %w", err)
	}

	slog.Info("template store seeded with welcome template", "id", t.ID)
	return nil
}

// WelcomeTemplate returns the template inserted by Seed.
func WelcomeTemplate(now time.Time) models.Template {
	theme, _ := models.ThemePreset(models.DefaultThemeName)
	return models.Template{
		ID:          uuid.NewString(),
		Title:       "Welcome to your workspace",
		Description: "A starter workspace showing every kind of block the generator can produce.",
		Theme:       theme,
		Blocks: []models.Block{
			{ID: "block-1", Type: models.BlockHeading, Content: "Welcome to your workspace", Level: 1},
			{ID: "block-2", Type: models.BlockParagraph, Content: "Describe the workspace you need and the generator builds it from typed blocks."},
			{ID: "block-3", Type: models.BlockHeading, Content: "Getting started", Level: 2},
			{ID: "block-4", Type: models.BlockQuote, Content: "Start small. A template is easy to regenerate."},
			{ID: "block-5", Type: models.BlockDatabase, Content: "Tasks", Properties: map[string]any{
				"columns": []any{"Name", "Status", "Due"},
			}},
			{ID: "block-6", Type: models.BlockTable, Content: "Weekly review", Properties: map[string]any{
				"columns": []any{"Week", "Wins", "Lessons"},
			}},
			{ID: "block-7", Type: models.BlockCode, Content: "curl -X POST /api/generate -d '{\"description\":\"...\"}'"},
			{ID: "block-8", Type: models.BlockDivider},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
