package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFn() (string, int64) {
	return "SELECT * FROM accounting_periods", 2
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Warn, 100*time.Millisecond)
	ctx := context.Background()

	l.Trace(ctx, time.Now(), sqlFn, nil)
	assert.Equal(t, 0, logs.Len(), "fast queries are not logged at warn level")

	l.Trace(ctx, time.Now().Add(-time.Second), sqlFn, nil)
	assert.Equal(t, 1, logs.FilterMessage("Slow SQL").Len())

	l.Trace(ctx, time.Now(), sqlFn, errors.New("connection refused"))
	assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())

	l.Trace(ctx, time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.FilterMessage("SQL Query").Len())
	assert.Equal(t, 2, logs.Len())
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewGormLogger(zap.New(core), gormlogger.Silent, 0)
	verbose := base.LogMode(gormlogger.Info)

	base.Trace(context.Background(), time.Now(), sqlFn, nil)
	assert.Equal(t, 0, logs.Len())

	verbose.Trace(context.Background(), time.Now(), sqlFn, nil)
	assert.Equal(t, 1, logs.FilterMessage("SQL Query").Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
