package logging

import (
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/NethermindEth/wei/pkg/config"
)

// NewZap 按日志配置创建 zap logger
// CLI 的标准输出留给命令结果，日志统一写 stderr
func NewZap(cfg config.LogConfig, fields map[string]interface{}) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// 设置日志级别
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	zapConfig.InitialFields = fields

	return zapConfig.Build()
}

// Logger 把 zap 适配为 kratos log.Logger
type Logger struct {
	zl *zap.Logger
}

var _ log.Logger = (*Logger)(nil)

// NewLogger 包装 zap logger
func NewLogger(zl *zap.Logger) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Logger{zl: zl.WithOptions(zap.AddCallerSkip(3))}
}

// Log 实现 kratos log.Logger
func (l *Logger) Log(level log.Level, keyvals ...interface{}) error {
	zapLevel := toZapLevel(level)
	if !l.zl.Core().Enabled(zapLevel) {
		return nil
	}

	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "")
	}

	var msg string
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		// log.Helper 把消息放在 msg 键下
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(keyvals[i+1])
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}

	if ce := l.zl.Check(zapLevel, msg); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

// Sync 刷新缓冲
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Zap 返回底层 zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

func toZapLevel(level log.Level) zapcore.Level {
	switch level {
	case log.LevelDebug:
		return zapcore.DebugLevel
	case log.LevelWarn:
		return zapcore.WarnLevel
	case log.LevelError:
		return zapcore.ErrorLevel
	case log.LevelFatal:
		// kratos 的 Fatal 由 Helper 负责退出，这里不能让 zap 再次退出
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Stderr 未配置时的兜底 logger
func Stderr() log.Logger {
	return log.NewStdLogger(os.Stderr)
}
