package log

import (
	"io"
	"log/slog"

	"github.com/hatlonely/esx/log/logger"
)

var (
	defaultLogger logger.Logger
	discardLogger logger.Logger
)

func init() {
	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = l

	d, err := logger.NewSLogWithWriter(io.Discard, slog.LevelError, &logger.SLogOptions{})
	if err != nil {
		panic("failed to initialize discard logger: " + err.Error())
	}
	discardLogger = d
}

// Default 默认日志器，text 格式输出到 stdout
func Default() logger.Logger {
	return defaultLogger
}

// Discard 丢弃所有输出的日志器
func Discard() logger.Logger {
	return discardLogger
}

// NewLoggerWithOptions options 为 nil 时返回 Default()
func NewLoggerWithOptions(options *logger.SLogOptions) (logger.Logger, error) {
	if options == nil {
		return Default(), nil
	}
	return logger.NewSLogWithOptions(options)
}
