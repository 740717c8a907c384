// Package store はレストランAPIの永続化層を提供する。
//
// SQLite（modernc.org/sqlite、cgo不要）を使用し、起動時にembedされた
// マイグレーションを適用する。顧客・メニュー・注文の作成と参照のみを扱い、
// 業務ルールは持たない。
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/restaurant-api/pkg/migration"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath はインメモリデータベースを表すパス。テストで使用する。
const MemoryPath = ":memory:"

var (
	// ErrNotFound は対象のレコードが存在しないことを表す。
	ErrNotFound = errors.New("レコードが見つかりません")
	// ErrConflict は一意制約に違反したことを表す。
	ErrConflict = errors.New("一意制約に違反しました")
	// ErrUnknownMenuItem は注文に存在しないメニュー項目が含まれていることを表す。
	ErrUnknownMenuItem = errors.New("存在しないメニュー項目です")
	// ErrInvalidQuantity は注文数量が不正であることを表す。
	ErrInvalidQuantity = errors.New("注文数量が不正です")
	// ErrEmptyOrder は注文明細が空であることを表す。
	ErrEmptyOrder = errors.New("注文明細が空です")
)

// Store はSQLiteデータベースへのアクセスを提供する。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// Open はSQLiteデータベースを開き、マイグレーションを適用する。
// pathにMemoryPathを指定するとインメモリデータベースになる。
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if path == MemoryPath {
		// インメモリDBは接続ごとに別物になるため1接続に制限する
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}

	return &Store{db: db}, nil
}

// dsn はmodernc.org/sqlite用の接続文字列を組み立てる。
func dsn(path string) string {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if path != MemoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	return path + "?" + strings.Join(pragmas, "&")
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation は一意制約違反のエラーかどうかを返す。
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
