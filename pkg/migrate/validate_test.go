package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
}

const validMigration = `-- +goose Up
CREATE TABLE widgets (id TEXT PRIMARY KEY);

-- +goose Down
DROP TABLE widgets;
`

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_create_widgets.sql", validMigration)
	writeMigration(t, dir, "20260102000000_add_index.sql", validMigration)
	// Non-SQL files are ignored.
	writeMigration(t, dir, "README.md", "notes")

	if err := ValidateDir(dir); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateDir_BadFilename(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "create_widgets.sql", validMigration)

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for unversioned filename")
	}
}

func TestValidateDir_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_create_widgets.sql", validMigration)
	writeMigration(t, dir, "20260101000000_create_gadgets.sql", validMigration)

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for duplicate version")
	}
}

func TestValidateDir_MissingAnnotations(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_create_widgets.sql", "-- +goose Up\nCREATE TABLE widgets (id TEXT);\n")

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for missing goose Down annotation")
	}
}

func TestValidateDir_EmptyDirArgument(t *testing.T) {
	if err := ValidateDir(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestValidateMigrations(t *testing.T) {
	// Tests run from the package directory.
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}
