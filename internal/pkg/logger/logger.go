package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/3Eeeecho/go-sharelink/internal/config"
)

var (
	log  *zap.Logger
	once sync.Once
	mu   sync.RWMutex
)

// InitLogger 初始化 Zap 日志库
// cfg.OutputPath: 日志文件路径，例如 "logs/app.log"
// cfg.ErrorPath: 错误日志文件路径，例如 "logs/error.log"
// cfg.Level: 日志级别 (debug, info, warn, error, dpanic, panic, fatal)
func InitLogger(cfg config.LogConfig) {
	once.Do(func() {
		l, err := build(cfg)
		if err != nil {
			panic(fmt.Sprintf("Failed to build zap logger: %v", err))
		}
		SetLogger(l)
	})
}

func build(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zap.InfoLevel
		fmt.Fprintf(os.Stderr, "Failed to parse log level '%s', defaulting to info: %v\n", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}
	for _, p := range []string{cfg.OutputPath, cfg.ErrorPath} {
		if p == "" || p == "stdout" || p == "stderr" {
			continue
		}
		// zap 不会自动创建目录
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
	}
	if cfg.OutputPath != "" && cfg.OutputPath != "stdout" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.OutputPath)
	}
	if cfg.ErrorPath != "" && cfg.ErrorPath != "stderr" {
		zc.ErrorOutputPaths = append(zc.ErrorOutputPaths, cfg.ErrorPath)
	}
	zc.Encoding = "json"
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zc.Build()
}

// SetLogger 替换全局 logger，测试中可注入 zap.NewNop()
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
	zap.ReplaceGlobals(l)
}

// 返回全局logger
func GetLogger() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		// 未调用 InitLogger 时退化为只输出到标准输出
		InitLogger(config.LogConfig{Level: "info"})
		mu.RLock()
		l = log
		mu.RUnlock()
	}
	return l
}

// Sugar 返回 Zap 的 SugaredLogger
func Sugar() *zap.SugaredLogger {
	return GetLogger().Sugar()
}

// 刷新缓冲区,确保程序退出前使用
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if log != nil {
		if err := log.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync zap logger: %v\n", err)
		}
	}
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}
