// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig mirrors the logging knobs carried by FrontendParameters.
type LogConfig struct {
	Level      string `toml:"logLevel"`
	Format     string `toml:"logFormat"`
	Filename   string `toml:"logFilename"`
	MaxSize    int    `toml:"logMaxSize"`
	MaxDays    int    `toml:"logMaxDays"`
	MaxBackups int    `toml:"logMaxBackups"`
}

var (
	globalLoggerMu sync.RWMutex
	globalLogger   = buildLogger(LogConfig{Level: "info", Format: "console"})
)

func buildLogger(cfg LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		_ = level.Set(cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.Filename != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    maxInt(cfg.MaxSize, 512),
			MaxAge:     cfg.MaxDays,
			MaxBackups: cfg.MaxBackups,
		})
	} else {
		sink = zapcore.AddSync(zapcore.Lock(zapcore.AddSync(os.Stderr)))
	}

	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core, zap.AddCaller())
}

func maxInt(a, b int) int {
	if a <= 0 {
		return b
	}
	return a
}

// InitLogger (re)configures the global logger; call once at startup after the
// configuration file has been loaded.
func InitLogger(cfg LogConfig) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = buildLogger(cfg)
}

// GetGlobalLogger returns the process-wide *zap.Logger.
func GetGlobalLogger() *zap.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func logger() *zap.Logger {
	return GetGlobalLogger().WithOptions(zap.AddCallerSkip(1))
}

func Debug(msg string, fields ...zap.Field) { logger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { logger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { logger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { logger().Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { logger().Sugar().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { logger().Sugar().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { logger().Sugar().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { logger().Sugar().Errorf(format, args...) }
