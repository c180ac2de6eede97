// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application-wide logging surface. All packages take it as a
// dependency instead of constructing their own zap instances.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Sync() error
}

type applicationLogger struct {
	*zap.SugaredLogger
}

type loggerOptions struct {
	name  string
	path  string
	level string
}

type LoggerOption func(*loggerOptions)

// Name sets the logger name, used as the rotated log file basename.
func Name(name string) LoggerOption {
	return func(o *loggerOptions) { o.name = name }
}

// Path sets the directory for rotated log files. Empty path logs to stderr only.
func Path(path string) LoggerOption {
	return func(o *loggerOptions) { o.path = path }
}

// Level sets the minimum log level: debug, info, warn or error.
func Level(level string) LoggerOption {
	return func(o *loggerOptions) { o.level = level }
}

// NewApplicationLogger builds the shared sugared logger. With a Path option
// output is duplicated to a size-rotated file next to stderr.
func NewApplicationLogger(opts ...LoggerOption) (Logger, error) {
	options := &loggerOptions{
		name:  "application",
		level: "info",
	}
	for _, opt := range opts {
		opt(options)
	}

	level, err := zapcore.ParseLevel(options.level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	syncers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if options.path != "" {
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(options.path, options.name+".log"),
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	logger := zap.New(core, zap.AddCaller()).Named(options.name)
	return &applicationLogger{logger.Sugar()}, nil
}
