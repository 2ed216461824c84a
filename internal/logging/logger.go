// Package logging はプロジェクト全体で使う構造化ロガーのインターフェースを定義します。
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger はコンテキスト対応の構造化ロガーです。
// 可変長引数はキーと値のペアとして解釈されます。
//
//	log.Info(ctx, "starting server", "addr", addr, "mode", mode)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With は指定したキーと値を常に付与する子ロガーを返します。
	With(args ...any) Logger
}

// New は標準出力へ JSON で書き出す Logger を作成します。
func New(level string) *SlogLogger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter は任意の出力先へ JSON で書き出す Logger を作成します。
func NewWithWriter(w io.Writer, level string) *SlogLogger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return NewSlogLogger(slog.New(h))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
