// store_test.go provides a shared test database helper for the PostgreSQL
// integration tests. Tests are skipped if PostgreSQL is not available.
package store_test

import (
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"workspacegen/internal/database"
	"workspacegen/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "workspacegen")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "workspacegen")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanTemplates removes test templates by id. Call in t.Cleanup().
func cleanTemplates(t *testing.T, db *sql.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		db.Exec("DELETE FROM templates WHERE id = $1", id)
	}
}

// sample builds a small valid template updated at the given offset.
func sample(id, title string, public bool, offset time.Duration) *models.Template {
	created := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	theme, _ := models.ThemePreset("minimal")
	return &models.Template{
		ID:          id,
		Title:       title,
		Description: "Description for " + title,
		Theme:       theme,
		Blocks: []models.Block{
			{ID: "b1", Type: models.BlockHeading, Content: title, Level: 1},
			{ID: "b2", Type: models.BlockDatabase, Content: "Tasks", Properties: map[string]any{
				"columns": []any{"Name", "Done"},
			}, Children: []models.Block{{ID: "b3", Type: models.BlockParagraph, Content: "nested"}}},
		},
		CreatedAt: created,
		UpdatedAt: created.Add(offset),
		IsPublic:  public,
	}
}
