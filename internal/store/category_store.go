package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
)

// ListCategories retrieves all categories ordered by name.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT name, type FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		var typ string
		if err := rows.Scan(&c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		c.Type = model.CategoryType(typ)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AddCategory inserts a category. A name that already exists is not an
// error: multiple discovery paths (user, AI output, folder scan) race
// to create the same category, so the duplicate outcome is part of the
// contract rather than a swallowed constraint violation.
func (s *SQLiteStore) AddCategory(ctx context.Context, name string, typ model.CategoryType) (AddOutcome, error) {
	if strings.TrimSpace(name) == "" {
		return CategoryAlreadyExists, fmt.Errorf("category name must not be empty")
	}
	if !typ.Valid() {
		return CategoryAlreadyExists, fmt.Errorf("invalid category type %q", typ)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO categories (name, type) VALUES (?, ?)",
		name, string(typ),
	)
	if err != nil {
		return CategoryAlreadyExists, fmt.Errorf("creating category %s: %w", name, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return CategoryAlreadyExists, nil
	}
	return CategoryCreated, nil
}

// UpdateCategoryType corrects a category's type, e.g. when a label
// auto-created as custom turns out to mirror a physical folder.
func (s *SQLiteStore) UpdateCategoryType(ctx context.Context, name string, typ model.CategoryType) error {
	if !typ.Valid() {
		return fmt.Errorf("invalid category type %q", typ)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE categories SET type = ? WHERE name = ?", string(typ), name)
	if err != nil {
		return fmt.Errorf("updating category %s: %w", name, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("category %s not found", name)
	}
	return nil
}

// DeleteCategory removes a category and clears the label on every
// message referencing it, in one transaction. Messages themselves are
// never deleted by category removal.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, name string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE emails SET smart_category = NULL WHERE smart_category = ?", name); err != nil {
		return fmt.Errorf("clearing label %s from messages: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM categories WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting category %s: %w", name, err)
	}

	return tx.Commit()
}

// RenameCategory renames a category and repoints every message carrying
// the old label, in one transaction. When newName already exists the
// messages converge onto the existing row and the old row is deleted,
// so no duplicate name can arise.
func (s *SQLiteStore) RenameCategory(ctx context.Context, oldName, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("category name must not be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Carry the old row's type over unless newName already exists.
	typ := string(model.CategoryTypeCustom)
	err = tx.GetContext(ctx, &typ,
		"SELECT type FROM categories WHERE name = ?", oldName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading category %s: %w", oldName, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO categories (name, type) VALUES (?, ?)",
		newName, typ); err != nil {
		return fmt.Errorf("creating category %s: %w", newName, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE emails SET smart_category = ? WHERE smart_category = ?",
		newName, oldName); err != nil {
		return fmt.Errorf("repointing messages from %s to %s: %w", oldName, newName, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM categories WHERE name = ?", oldName); err != nil {
		return fmt.Errorf("deleting category %s: %w", oldName, err)
	}

	return tx.Commit()
}
