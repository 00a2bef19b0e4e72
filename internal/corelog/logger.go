// Package corelog is the logging backbone shared by every component of
// the sidecar supervisor. It mirrors the attribute-builder style the
// rest of this codebase's ancestry uses, but wraps zap.Logger directly
// instead of a host service logger, since this module is embedded in a
// desktop host rather than run as its own OS service.
package corelog

import (
	"net/url"
	"time"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Attrib is a deferred structured-logging field, built the same way
// call sites expect: corelog.String("pipe", name), corelog.Error(err).
type Attrib = zap.Field

func String(name, value string) Attrib   { return zap.String(name, value) }
func Error(err error) Attrib             { return zap.Error(err) }
func Bool(name string, value bool) Attrib { return zap.Bool(name, value) }
func Any(name string, value interface{}) Attrib { return zap.Any(name, value) }
func Int(name string, value int) Attrib  { return zap.Int(name, value) }
func Time(name string, value time.Time) Attrib { return zap.Time(name, value) }
func Duration(name string, value time.Duration) Attrib {
	return zap.Duration(name, value)
}

// Logger is the surface every component logs through.
type Logger interface {
	With(attrs ...Attrib) Logger
	Info(msg string, attrs ...Attrib)
	Error(msg string, attrs ...Attrib)
	Warn(msg string, attrs ...Attrib)
	Debug(msg string, attrs ...Attrib)
	Fatal(msg string, attrs ...Attrib)
	Sync() error
}

type zapLogger struct {
	z *zap.Logger
}

func (l zapLogger) With(attrs ...Attrib) Logger {
	return zapLogger{z: l.z.With(attrs...)}
}

func (l zapLogger) Info(msg string, attrs ...Attrib)  { l.z.Info(msg, attrs...) }
func (l zapLogger) Error(msg string, attrs ...Attrib) { l.z.Error(msg, attrs...) }
func (l zapLogger) Warn(msg string, attrs ...Attrib)  { l.z.Warn(msg, attrs...) }
func (l zapLogger) Debug(msg string, attrs ...Attrib) { l.z.Debug(msg, attrs...) }
func (l zapLogger) Fatal(msg string, attrs ...Attrib) { l.z.Fatal(msg, attrs...) }
func (l zapLogger) Sync() error                       { return l.z.Sync() }

// New builds the production logger: a lumberjack-backed rotating sink
// registered under the "lumberjack://" scheme, same registration trick
// the driver ancestor used for its own on-disk log.
func New(logFile string, debug bool) (Logger, error) {
	zap.RegisterSink("lumberjack", func(u *url.URL) (zap.Sink, error) {
		return lumberjackSink{Logger: &lumberjack.Logger{
			Filename:   u.Path,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}}, nil
	})

	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	if logFile != "" {
		config.OutputPaths = []string{"lumberjack://" + logFile}
	}
	z, err := config.Build()
	if err != nil {
		return nil, err
	}
	return zapLogger{z: z}, nil
}

// NewNop builds a logger that discards everything, for tests and
// fixtures that don't want a log file.
func NewNop() Logger {
	return zapLogger{z: zap.NewNop()}
}

type lumberjackSink struct {
	*lumberjack.Logger
}

func (lumberjackSink) Sync() error { return nil }
