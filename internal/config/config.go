// Package config はレストランAPIの設定を読み込む。
//
// 設定はデフォルト値、YAMLファイル（任意）、環境変数の順に上書きされる。
// カレントディレクトリに .env があれば環境変数として先に読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// 設定キー。環境変数名は大文字、YAMLのキーは小文字で表す。
const (
	keyPort               = "port"
	keyJWTSecret          = "jwt_secret"
	keyTokenTTL           = "token_ttl"
	keyTokenIssuer        = "token_issuer"
	keyDatabasePath       = "database_path"
	keyLogLevel           = "log_level"
	keyLogFormat          = "log_format"
	keyProtectedGroups    = "protected_groups"
	keyCORSAllowedOrigins = "cors_allowed_origins"
	keyBodyLimit          = "body_limit"
	keyShutdownTimeout    = "shutdown_timeout"
	keyAdminEmail         = "admin_email"
	keyAdminPassword      = "admin_password"
	keyAdminName          = "admin_name"
)

// ConfigFileEnv は設定ファイルのパスを指定する環境変数名。
const ConfigFileEnv = "CONFIG_FILE"

// defaults は各キーのデフォルト値。
var defaults = map[string]string{
	keyPort:               "8080",
	keyJWTSecret:          "",
	keyTokenTTL:           "24h",
	keyTokenIssuer:        "restaurant-api",
	keyDatabasePath:       "restaurant.db",
	keyLogLevel:           "info",
	keyLogFormat:          "json",
	keyProtectedGroups:    "customers,orders",
	keyCORSAllowedOrigins: "",
	keyBodyLimit:          "102400",
	keyShutdownTimeout:    "10s",
	keyAdminEmail:         "",
	keyAdminPassword:      "",
	keyAdminName:          "Administrator",
}

// Groups は認証ゲートを掛けられるリソースグループ。
var Groups = []string{"menu", "orders", "customers"}

// MaxPasswordBytes はbcryptがハッシュできるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// ErrMissingSecret はJWT_SECRETが未設定であることを表す。
var ErrMissingSecret = errors.New("JWT_SECRETが設定されていません")

// Config はレストランAPIの設定。
type Config struct {
	// Port はHTTPサーバーの待ち受けポート。
	Port int
	// JWTSecret はトークンの署名・検証に使う共有シークレット。
	JWTSecret string
	// TokenTTL は発行するトークンの有効期間。
	TokenTTL time.Duration
	// TokenIssuer は発行するトークンのiss。
	TokenIssuer string
	// DatabasePath はSQLiteのファイルパス。":memory:"でインメモリになる。
	DatabasePath string
	// LogLevel はログレベル（debug / info / warn / error）。
	LogLevel string
	// LogFormat はログ形式（json / console）。
	LogFormat string
	// ProtectedGroups は認証ゲートを掛けるリソースグループ。
	ProtectedGroups []string
	// CORSAllowedOrigins はCORSで許可するオリジン。空の場合CORSは無効。
	CORSAllowedOrigins []string
	// BodyLimit はJSONボディの最大バイト数。
	BodyLimit int64
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration
	// AdminEmail は起動時に用意する管理者のメールアドレス。空の場合は用意しない。
	AdminEmail string
	// AdminPassword は管理者の初期パスワード。
	AdminPassword string
	// AdminName は管理者の表示名。
	AdminName string
}

// Load は設定を読み込んで検証する。
// pathが空の場合はCONFIG_FILE環境変数のパスを使い、それも空ならファイルは読まない。
func Load(path string) (*Config, error) {
	// .envは存在しなくてもよい。既存の環境変数は上書きしない。
	_ = godotenv.Load()

	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("デフォルト値の設定に失敗: %w", err)
		}
	}

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("設定ファイル %s の読み込みに失敗: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := defaults[key]; !ok {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	return parse(k)
}

// parse はkoanfの値を型付きの設定に変換して検証する。
func parse(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		JWTSecret:          value(k, keyJWTSecret),
		TokenIssuer:        value(k, keyTokenIssuer),
		DatabasePath:       value(k, keyDatabasePath),
		LogLevel:           strings.ToLower(value(k, keyLogLevel)),
		LogFormat:          strings.ToLower(value(k, keyLogFormat)),
		ProtectedGroups:    list(k, keyProtectedGroups),
		CORSAllowedOrigins: list(k, keyCORSAllowedOrigins),
		AdminEmail:         strings.ToLower(strings.TrimSpace(k.String(keyAdminEmail))),
		// パスワードは前後の空白も値の一部として扱う
		AdminPassword: k.String(keyAdminPassword),
		AdminName:     value(k, keyAdminName),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(value(k, keyPort)); err != nil || cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORTが不正です: %q", value(k, keyPort))
	}
	if cfg.TokenTTL, err = time.ParseDuration(value(k, keyTokenTTL)); err != nil || cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTLが不正です: %q", value(k, keyTokenTTL))
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(value(k, keyShutdownTimeout)); err != nil || cfg.ShutdownTimeout < 0 {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUTが不正です: %q", value(k, keyShutdownTimeout))
	}
	if cfg.BodyLimit, err = strconv.ParseInt(value(k, keyBodyLimit), 10, 64); err != nil || cfg.BodyLimit <= 0 {
		return nil, fmt.Errorf("BODY_LIMITが不正です: %q", value(k, keyBodyLimit))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は型変換後の設定値を検証する。
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATHが設定されていません")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMATが不正です: %q", c.LogFormat)
	}
	for _, g := range c.ProtectedGroups {
		if !slices.Contains(Groups, g) {
			return fmt.Errorf("PROTECTED_GROUPSに不明なグループが含まれています: %q", g)
		}
	}
	if c.AdminEmail == "" {
		if c.AdminPassword != "" {
			return errors.New("ADMIN_PASSWORDにはADMIN_EMAILが必要です")
		}
		return nil
	}
	if n := len(c.AdminPassword); n < 8 || n > MaxPasswordBytes {
		return fmt.Errorf("ADMIN_PASSWORDは8バイト以上%dバイト以下にしてください", MaxPasswordBytes)
	}
	return nil
}

// IsProtected はグループが認証ゲートの対象かどうかを返す。
func (c *Config) IsProtected(group string) bool {
	return slices.Contains(c.ProtectedGroups, group)
}

// Addr はHTTPサーバーの待ち受けアドレスを返す。
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// value はキーの値を返す。空文字列の場合はデフォルト値を返す。
func value(k *koanf.Koanf, key string) string {
	if v := strings.TrimSpace(k.String(key)); v != "" {
		return v
	}
	return defaults[key]
}

// list はカンマ区切りの文字列またはYAMLのリストを文字列スライスに変換する。
// 空要素は除外する。
func list(k *koanf.Koanf, key string) []string {
	var raw []string
	switch v := k.Get(key).(type) {
	case []any:
		for _, e := range v {
			raw = append(raw, fmt.Sprint(e))
		}
	default:
		raw = strings.Split(k.String(key), ",")
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
