package logger

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	logger zerolog.Logger
	level  *atomic.Int32
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerolog wraps zl. The adapter keeps its own minimum level which starts at level,
// independent of any level already set on zl.
func NewZerolog(zl zerolog.Logger, level LogLevel) Logger {
	lv := &atomic.Int32{}
	lv.Store(int32(level))

	return &ZerologLogger{logger: zl.Level(zerolog.TraceLevel), level: lv}
}

func (l *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	l.emit(DebugLevel, l.logger.Debug(), msg, keysAndValues)
}

func (l *ZerologLogger) Info(msg string, keysAndValues ...any) {
	l.emit(InfoLevel, l.logger.Info(), msg, keysAndValues)
}

func (l *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	l.emit(WarnLevel, l.logger.Warn(), msg, keysAndValues)
}

func (l *ZerologLogger) Error(msg string, keysAndValues ...any) {
	l.emit(ErrorLevel, l.logger.Error(), msg, keysAndValues)
}

// Fatal logs at fatal level; zerolog exits the process once the event is written.
func (l *ZerologLogger) Fatal(msg string, keysAndValues ...any) {
	l.emit(FatalLevel, l.logger.Fatal(), msg, keysAndValues)
}

func (l *ZerologLogger) With(keyValues ...any) Logger {
	ctx := l.logger.With()
	for i := 0; i < len(keyValues); i += 2 {
		key, val := pairAt(keyValues, i)
		ctx = ctx.Interface(key, val)
	}

	return &ZerologLogger{logger: ctx.Logger(), level: l.level}
}

func (l *ZerologLogger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

func (l *ZerologLogger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *ZerologLogger) emit(level LogLevel, ev *zerolog.Event, msg string, keysAndValues []any) {
	if level < l.Level() && level != FatalLevel {
		return
	}
	for i := 0; i < len(keysAndValues); i += 2 {
		key, val := pairAt(keysAndValues, i)
		if err, ok := val.(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, val)
	}
	ev.Msg(msg)
}

// pairAt returns the key/value pair starting at i. A dangling key gets the value "!MISSING".
func pairAt(kv []any, i int) (string, any) {
	key, ok := kv[i].(string)
	if !ok {
		key = fmt.Sprint(kv[i])
	}
	if i+1 >= len(kv) {
		return key, "!MISSING"
	}

	return key, kv[i+1]
}
