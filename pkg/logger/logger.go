// Package logger 构建基于 charmbracelet/log 的结构化日志器。
// 日志器通过构造参数注入各组件，不使用全局实例。
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Options 是日志器配置。
type Options struct {
	Level  string    // debug / info / warn / error，默认 info
	Format string    // text / json / logfmt，默认 text
	Output io.Writer // 默认 os.Stderr
	Prefix string
}

// New 创建日志器。
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level, err := log.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = log.InfoLevel
	}
	formatter := log.TextFormatter
	switch strings.ToLower(opts.Format) {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
	})
}

// Nop 返回丢弃所有输出的日志器，用于测试与未注入日志器的组件。
func Nop() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrNop 在 l 为 nil 时返回 Nop()。
func OrNop(l *log.Logger) *log.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
