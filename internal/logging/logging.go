package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trackify/internal/config"
)

type Component string

const (
	MainComponent     Component = "main"
	HTTPComponent     Component = "http"
	DatabaseComponent Component = "database"
	StorageComponent  Component = "storage"
	TracingComponent  Component = "tracing"
)

// locationFormatter renders entry timestamps in a fixed timezone.
type locationFormatter struct {
	logrus.Formatter
	loc *time.Location
}

func (f *locationFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.In(f.loc)
	return f.Formatter.Format(e)
}

// New builds a logrus logger writing to stdout.
func New(cfg config.LogConfig, loc *time.Location) *logrus.Logger {
	return NewWithWriter(os.Stdout, cfg, loc)
}

// NewWithWriter builds a logrus logger writing one entry per line to w.
// Unknown levels fall back to info; the json format is the default.
func NewWithWriter(w io.Writer, cfg config.LogConfig, loc *time.Location) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if loc == nil {
		loc = time.UTC
	}

	var f logrus.Formatter
	switch strings.ToLower(cfg.Format) {
	case "text":
		f = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		}
	default:
		f = &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
			},
		}
	}
	log.SetFormatter(&locationFormatter{Formatter: f, loc: loc})

	return log
}

// WithComponent tags every entry with the given component.
func WithComponent(log logrus.FieldLogger, c Component) *logrus.Entry {
	return log.WithField("component", string(c))
}
