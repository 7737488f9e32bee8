package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetLogger() {
	logger = nil
	once = sync.Once{}
}

func TestL_Fallback(t *testing.T) {
	resetLogger()
	l := L()
	assert.NotNil(t, l, "L should return a fallback logger if not initialized")
}

func TestL_Singleton(t *testing.T) {
	resetLogger()
	err := Initialize(true)
	assert.NoError(t, err)

	l1 := L()
	l2 := L()

	assert.NotNil(t, l1)
	assert.Equal(t, l1, l2, "L should return the same instance after initialization")
}

func TestWithContext(t *testing.T) {
	resetLogger()

	core, logs := observer.New(zap.InfoLevel)
	testLogger := zap.New(core)
	logger = testLogger

	Info(context.Background(), "test1")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "test1", logs.All()[0].Message)

	ctx := WithCorrelationID(context.Background(), "req-1")
	ctx = WithRoom(ctx, "ABCD")
	ctx = WithPlayer(ctx, "player-1")

	Info(ctx, "test2")

	assert.Equal(t, 2, logs.Len())
	entry := logs.All()[1]
	assert.Equal(t, "test2", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "req-1", fields["correlation_id"])
	assert.Equal(t, "ABCD", fields["room_code"])
	assert.Equal(t, "player-1", fields["player_id"])
	assert.Equal(t, "trivia-room-core", fields["service"])
}

func TestHelperMethods(t *testing.T) {
	resetLogger()

	core, logs := observer.New(zap.DebugLevel)
	testLogger := zap.New(core)
	logger = testLogger

	ctx := context.Background()

	Debug(ctx, "debug msg")
	Info(ctx, "info msg", zap.String("key", "val"))
	Warn(ctx, "warn msg")
	Error(ctx, "error msg")

	assert.Equal(t, 4, logs.Len())
	assert.Equal(t, zap.DebugLevel, logs.All()[0].Level)
	assert.Equal(t, zap.InfoLevel, logs.All()[1].Level)
	assert.Equal(t, zap.WarnLevel, logs.All()[2].Level)
	assert.Equal(t, zap.ErrorLevel, logs.All()[3].Level)
}

func TestInitialize(t *testing.T) {
	resetLogger()
	err := Initialize(true)
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	// Initialize is guarded by sync.Once: a second call is a no-op.
	l1 := logger
	err = Initialize(false)
	assert.NoError(t, err)
	assert.Equal(t, l1, logger)
}

func TestAppendContextFields(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-1")
	ctx = WithRoom(ctx, "ABCD")
	ctx = WithPlayer(ctx, "player-1")

	fields := appendContextFields(ctx, []zap.Field{})

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}

	assert.Equal(t, "req-1", enc.Fields["correlation_id"])
	assert.Equal(t, "ABCD", enc.Fields["room_code"])
	assert.Equal(t, "player-1", enc.Fields["player_id"])
	assert.Equal(t, "trivia-room-core", enc.Fields["service"])
}

func TestAppendContextFields_NilContextIsSafe(t *testing.T) {
	fields := appendContextFields(nil, []zap.Field{zap.String("seed", "v")})
	assert.Len(t, fields, 1)
}
