// Package logging wraps zap with the context-field propagation the rest of
// the service relies on: a correlation id, the room code, and the player id
// attach to every log line without callers threading them through by hand.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation_id"
	RoomCodeKey      contextKey = "room_code"
	PlayerIDKey      contextKey = "player_id"
)

// Initialize sets up the global logger based on the environment.
func Initialize(development bool) error {
	var err error
	once.Do(func() {
		var cfg zap.Config
		if development {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "timestamp"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}

		logger, err = cfg.Build(zap.AddCallerSkip(1))
	})
	return err
}

// L returns the global logger instance, falling back to a development
// logger if Initialize hasn't run yet (useful in tests).
func L() *zap.Logger {
	if logger == nil {
		l, _ := zap.NewDevelopment()
		return l
	}
	return logger
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	L().Info(msg, appendContextFields(ctx, fields)...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	L().Warn(msg, appendContextFields(ctx, fields)...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	L().Error(msg, appendContextFields(ctx, fields)...)
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	L().Debug(msg, appendContextFields(ctx, fields)...)
}

func WithRoom(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, RoomCodeKey, code)
}

func WithPlayer(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, PlayerIDKey, playerID)
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

func appendContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	if cid, ok := ctx.Value(CorrelationIDKey).(string); ok && cid != "" {
		fields = append(fields, zap.String("correlation_id", cid))
	}
	if code, ok := ctx.Value(RoomCodeKey).(string); ok && code != "" {
		fields = append(fields, zap.String("room_code", code))
	}
	if pid, ok := ctx.Value(PlayerIDKey).(string); ok && pid != "" {
		fields = append(fields, zap.String("player_id", pid))
	}
	fields = append(fields, zap.String("service", "trivia-room-core"))
	return fields
}
