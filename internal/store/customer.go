package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Customer は顧客（認証ユーザー）のレコード。
type Customer struct {
	// ID は顧客の一意識別子。
	ID string
	// Name は表示名。
	Name string
	// Email はログインに使うメールアドレス。
	Email string
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string
	// Role は役割（customer / staff / admin）。
	Role string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// CreateCustomerParams は顧客作成のパラメータ。
type CreateCustomerParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

const customerColumns = "id, name, email, password_hash, role, created_at"

// CreateCustomer は顧客を作成する。メールアドレスが重複している場合はErrConflictを返す。
func (s *Store) CreateCustomer(ctx context.Context, p CreateCustomerParams) (Customer, error) {
	c := Customer{
		ID:           uuid.NewString(),
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO customers ("+customerColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.Name, c.Email, c.PasswordHash, c.Role, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Customer{}, fmt.Errorf("顧客の作成に失敗: %w", ErrConflict)
		}
		return Customer{}, fmt.Errorf("顧客の作成に失敗: %w", err)
	}
	return c, nil
}

// GetCustomerByID はIDで顧客を取得する。
func (s *Store) GetCustomerByID(ctx context.Context, id string) (Customer, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
	return scanCustomer(row)
}

// GetCustomerByEmail はメールアドレスで顧客を取得する。
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (Customer, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE email = ?", email)
	return scanCustomer(row)
}

// ListCustomers は顧客を作成日時順にすべて取得する。
func (s *Store) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("顧客一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	customers := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("顧客一覧の走査に失敗: %w", err)
	}
	return customers, nil
}

// UpdateCustomerRole は顧客の役割を更新し、更新後のレコードを返す。
// 顧客が存在しない場合はErrNotFoundを返す。
func (s *Store) UpdateCustomerRole(ctx context.Context, id, role string) (Customer, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE customers SET role = ? WHERE id = ?", role, id)
	if err != nil {
		return Customer{}, fmt.Errorf("顧客の役割の更新に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Customer{}, fmt.Errorf("顧客の役割の更新に失敗: %w", err)
	}
	if n == 0 {
		return Customer{}, ErrNotFound
	}
	return s.GetCustomerByID(ctx, id)
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCustomer は1行を顧客レコードに変換する。
func scanCustomer(row rowScanner) (Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Role, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("顧客の読み取りに失敗: %w", err)
	}
	return c, nil
}
