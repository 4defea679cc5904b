package utils

import (
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/anoixa/photo-relay/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger 初始化全局 zerolog 日志
// 开发版本使用 ConsoleWriter，发布版本输出 JSON
func InitLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if config.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
			With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// LogIfDev 仅在开发版本输出
func LogIfDev(msg string) {
	if config.IsDevelopment() {
		log.Debug().Msg(msg)
	}
}

// LogIfDevf 仅在开发版本输出（格式化）
func LogIfDevf(format string, args ...interface{}) {
	if config.IsDevelopment() {
		log.Debug().Msgf(format, args...)
	}
}

func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\t' {
			sb.WriteRune(r)
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogFilename 客户端提交的文件名原样入库，写日志前需要截断并去除控制字符
func SanitizeLogFilename(name string) string {
	if len(name) > 80 {
		name = name[:80] + "..."
	}
	return SanitizeLogMessage(name)
}
