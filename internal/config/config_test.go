package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

// clearEnv は設定に関係する環境変数をテスト中だけ未設定にする。
// t.Setenvを使うため、呼び出すテストは並列実行できない。
func clearEnv(t *testing.T) {
	t.Helper()

	for key := range defaults {
		name := strings.ToUpper(key)
		t.Setenv(name, "")
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("環境変数 %s の削除に失敗: %v", name, err)
		}
	}
	t.Setenv(ConfigFileEnv, "")
	if err := os.Unsetenv(ConfigFileEnv); err != nil {
		t.Fatalf("環境変数 %s の削除に失敗: %v", ConfigFileEnv, err)
	}
}

// writeConfigFile はテスト用のYAML設定ファイルを作成する。
func writeConfigFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("設定ファイルの作成に失敗: %v", err)
	}
	return path
}

// TestLoad は設定の読み込みを検証する。
func TestLoad(t *testing.T) {
	t.Run("JWT_SECRETのみ指定した場合デフォルト値が使われること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.Port != 8080 {
			t.Errorf("Port = %d, want 8080", cfg.Port)
		}
		if cfg.TokenTTL != 24*time.Hour {
			t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
		}
		if cfg.TokenIssuer != "restaurant-api" {
			t.Errorf("TokenIssuer = %q, want %q", cfg.TokenIssuer, "restaurant-api")
		}
		if cfg.DatabasePath != "restaurant.db" {
			t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "restaurant.db")
		}
		if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
			t.Errorf("LogLevel = %q, LogFormat = %q", cfg.LogLevel, cfg.LogFormat)
		}
		if !slices.Equal(cfg.ProtectedGroups, []string{"customers", "orders"}) {
			t.Errorf("ProtectedGroups = %v, want [customers orders]", cfg.ProtectedGroups)
		}
		if len(cfg.CORSAllowedOrigins) != 0 {
			t.Errorf("CORSAllowedOrigins = %v, want empty", cfg.CORSAllowedOrigins)
		}
		if cfg.BodyLimit != 102400 {
			t.Errorf("BodyLimit = %d, want 102400", cfg.BodyLimit)
		}
		if cfg.ShutdownTimeout != 10*time.Second {
			t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
		}
		if cfg.Addr() != ":8080" {
			t.Errorf("Addr() = %q, want %q", cfg.Addr(), ":8080")
		}
	})

	t.Run("JWT_SECRETが未設定の場合ErrMissingSecretが返ること", func(t *testing.T) {
		clearEnv(t)

		_, err := Load("")
		if !errors.Is(err, ErrMissingSecret) {
			t.Errorf("errors.Is(err, ErrMissingSecret) = false, err = %v", err)
		}
	})

	t.Run("環境変数で値を上書きできること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PORT", "3000")
		t.Setenv("TOKEN_TTL", "30m")
		t.Setenv("PROTECTED_GROUPS", " Menu , orders ,")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://example.com")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.Port != 3000 {
			t.Errorf("Port = %d, want 3000", cfg.Port)
		}
		if cfg.TokenTTL != 30*time.Minute {
			t.Errorf("TokenTTL = %v, want 30m", cfg.TokenTTL)
		}
		if !slices.Equal(cfg.ProtectedGroups, []string{"menu", "orders"}) {
			t.Errorf("ProtectedGroups = %v, want [menu orders]", cfg.ProtectedGroups)
		}
		if !cfg.IsProtected("menu") || cfg.IsProtected("customers") {
			t.Errorf("IsProtected() の結果が不正: %v", cfg.ProtectedGroups)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Errorf("CORSAllowedOrigins = %v, want 2 origins", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("PROTECTED_GROUPSを空にすると認証ゲートが無効になること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PROTECTED_GROUPS", "")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if len(cfg.ProtectedGroups) != 0 {
			t.Errorf("ProtectedGroups = %v, want empty", cfg.ProtectedGroups)
		}
	})

	t.Run("YAMLファイルの値が読み込まれ環境変数が優先されること", func(t *testing.T) {
		clearEnv(t)
		path := writeConfigFile(t, strings.Join([]string{
			"jwt_secret: from-file",
			"port: 9090",
			"log_format: console",
			"protected_groups:",
			"  - menu",
			"  - customers",
		}, "\n"))
		t.Setenv("PORT", "7070")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.JWTSecret != "from-file" {
			t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, "from-file")
		}
		if cfg.Port != 7070 {
			t.Errorf("Port = %d, want 7070", cfg.Port)
		}
		if cfg.LogFormat != "console" {
			t.Errorf("LogFormat = %q, want console", cfg.LogFormat)
		}
		if !slices.Equal(cfg.ProtectedGroups, []string{"menu", "customers"}) {
			t.Errorf("ProtectedGroups = %v, want [menu customers]", cfg.ProtectedGroups)
		}
	})

	t.Run("CONFIG_FILE環境変数で設定ファイルを指定できること", func(t *testing.T) {
		clearEnv(t)
		path := writeConfigFile(t, "jwt_secret: via-env\ntoken_issuer: test-issuer\n")
		t.Setenv(ConfigFileEnv, path)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.TokenIssuer != "test-issuer" {
			t.Errorf("TokenIssuer = %q, want %q", cfg.TokenIssuer, "test-issuer")
		}
	})

	t.Run("存在しない設定ファイルはエラーになること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "secret")

		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("存在しない設定ファイルでエラーが返るべき")
		}
	})

	t.Run("不正な値はエラーになること", func(t *testing.T) {
		cases := map[string]string{
			"PORT":             "not-a-number",
			"TOKEN_TTL":        "-1h",
			"BODY_LIMIT":       "0",
			"SHUTDOWN_TIMEOUT": "soon",
			"LOG_FORMAT":       "xml",
			"PROTECTED_GROUPS": "orders,kitchen",
		}
		for name, v := range cases {
			t.Run(name, func(t *testing.T) {
				clearEnv(t)
				t.Setenv("JWT_SECRET", "secret")
				t.Setenv(name, v)

				if _, err := Load(""); err == nil {
					t.Errorf("%s=%q でエラーが返るべき", name, v)
				}
			})
		}
	})

	t.Run("管理者の資格情報を読み込めること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("ADMIN_EMAIL", " Owner@Example.com ")
		t.Setenv("ADMIN_PASSWORD", "admin-password")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.AdminEmail != "owner@example.com" {
			t.Errorf("AdminEmail = %q, want %q", cfg.AdminEmail, "owner@example.com")
		}
		if cfg.AdminPassword != "admin-password" {
			t.Errorf("AdminPassword = %q", cfg.AdminPassword)
		}
		if cfg.AdminName != "Administrator" {
			t.Errorf("AdminName = %q, want Administrator", cfg.AdminName)
		}
	})

	t.Run("管理者の資格情報が不完全な場合エラーになること", func(t *testing.T) {
		cases := []struct {
			name     string
			email    string
			password string
		}{
			{name: "パスワードなし", email: "owner@example.com", password: ""},
			{name: "短すぎるパスワード", email: "owner@example.com", password: "short"},
			{name: "72バイトを超えるパスワード", email: "owner@example.com", password: strings.Repeat("あ", 25)},
			{name: "メールアドレスなし", email: "", password: "admin-password"},
		}
		for _, tt := range cases {
			t.Run(tt.name, func(t *testing.T) {
				clearEnv(t)
				t.Setenv("JWT_SECRET", "secret")
				t.Setenv("ADMIN_EMAIL", tt.email)
				t.Setenv("ADMIN_PASSWORD", tt.password)

				if _, err := Load(""); err == nil {
					t.Errorf("ADMIN_EMAIL=%q ADMIN_PASSWORD=%q でエラーが返るべき", tt.email, tt.password)
				}
			})
		}
	})
}
