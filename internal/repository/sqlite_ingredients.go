package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

// SQLiteIngredientStore keeps ingredient stock levels in a local SQLite file.
type SQLiteIngredientStore struct {
	db *sql.DB
	mu sync.Mutex
	l  *applogger.Logger
}

var _ domrepo.IngredientStore = (*SQLiteIngredientStore)(nil)

// NewSQLiteIngredientStore opens (or creates) the database and runs migrations.
func NewSQLiteIngredientStore(path string, l *applogger.Logger) (*SQLiteIngredientStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL lets the alert monitor read while the API writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteIngredientStore{db: db, l: l}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info("sqlite ingredient store opened", applogger.String("path", path))
	return s, nil
}

func (s *SQLiteIngredientStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingredients (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			name      TEXT NOT NULL UNIQUE,
			unit      TEXT NOT NULL DEFAULT '',
			quantity  REAL NOT NULL DEFAULT 0,
			threshold REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingredients_low ON ingredients(quantity, threshold)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(stmt)[:30], err)
		}
	}
	return nil
}

func (s *SQLiteIngredientStore) List(ctx context.Context) ([]models.Ingredient, error) {
	return s.query(ctx, `SELECT id, name, unit, quantity, threshold FROM ingredients ORDER BY name`)
}

// LowStock returns ingredients with quantity at or below threshold.
func (s *SQLiteIngredientStore) LowStock(ctx context.Context) ([]models.Ingredient, error) {
	return s.query(ctx, `SELECT id, name, unit, quantity, threshold FROM ingredients WHERE quantity <= threshold ORDER BY name`)
}

// Upsert inserts the ingredient or updates the row with the same name, and
// sets ing.ID.
func (s *SQLiteIngredientStore) Upsert(ctx context.Context, ing *models.Ingredient) error {
	if ing == nil || strings.TrimSpace(ing.Name) == "" {
		return errors.New("ingredient name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	const q = `
		INSERT INTO ingredients (name, unit, quantity, threshold) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			unit = excluded.unit,
			quantity = excluded.quantity,
			threshold = excluded.threshold
		RETURNING id`
	if err := s.db.QueryRowContext(ctx, q, ing.Name, ing.Unit, ing.Quantity, ing.Threshold).Scan(&ing.ID); err != nil {
		return fmt.Errorf("upsert ingredient %s: %w", ing.Name, err)
	}
	return nil
}

func (s *SQLiteIngredientStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteIngredientStore) query(ctx context.Context, q string) ([]models.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()

	out := make([]models.Ingredient, 0, 32)
	for rows.Next() {
		var ing models.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.Quantity, &ing.Threshold); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
