package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MenuItem はメニュー項目のレコード。
type MenuItem struct {
	ID          string
	Name        string
	Description string
	// PriceCents は最小通貨単位での価格。
	PriceCents int64
	Category    string
	CreatedAt   time.Time
}

// CreateMenuItemParams はメニュー項目作成のパラメータ。
type CreateMenuItemParams struct {
	Name        string
	Description string
	PriceCents  int64
	Category    string
}

const menuItemColumns = "id, name, description, price_cents, category, created_at"

// CreateMenuItem はメニュー項目を作成する。
func (s *Store) CreateMenuItem(ctx context.Context, p CreateMenuItemParams) (MenuItem, error) {
	m := MenuItem{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Category:    p.Category,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO menu_items ("+menuItemColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.Name, m.Description, m.PriceCents, m.Category, m.CreatedAt,
	); err != nil {
		return MenuItem{}, fmt.Errorf("メニュー項目の作成に失敗: %w", err)
	}
	return m, nil
}

// GetMenuItem はIDでメニュー項目を取得する。
func (s *Store) GetMenuItem(ctx context.Context, id string) (MenuItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+menuItemColumns+" FROM menu_items WHERE id = ?", id)
	m, err := scanMenuItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MenuItem{}, ErrNotFound
	}
	if err != nil {
		return MenuItem{}, fmt.Errorf("メニュー項目の取得に失敗: %w", err)
	}
	return m, nil
}

// ListMenuItems はメニュー項目をカテゴリ・名前順に取得する。
// categoryが空でない場合はそのカテゴリのみを返す。
func (s *Store) ListMenuItems(ctx context.Context, category string) ([]MenuItem, error) {
	query := "SELECT " + menuItemColumns + " FROM menu_items"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY category, name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("メニュー一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]MenuItem, 0)
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("メニュー項目の読み取りに失敗: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メニュー一覧の走査に失敗: %w", err)
	}
	return items, nil
}

func scanMenuItem(row rowScanner) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.PriceCents, &m.Category, &m.CreatedAt)
	return m, err
}
