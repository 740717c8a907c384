// Package logger はzapベースの構造化ロガーを生成する。
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FormatJSON は本番向けのJSON出力を表す。
const FormatJSON = "json"

// FormatConsole は開発向けの人間が読みやすい出力を表す。
const FormatConsole = "console"

// New はログレベルと出力形式を指定してロガーを生成する。
// levelには "debug", "info", "warn", "error" などzapが解釈できる文字列を指定する。
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("ログレベルの解析に失敗: %w", err)
	}

	var cfg zap.Config
	switch format {
	case FormatJSON, "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("未対応のログ形式です: %q", format)
	}
	cfg.Level = lvl

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの構築に失敗: %w", err)
	}
	return l.Named("restaurant-api"), nil
}
