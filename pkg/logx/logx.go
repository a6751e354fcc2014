// Package logx holds the small amount of slog plumbing shared by the
// library packages. Libraries never log unless the caller hands them a
// logger.
package logx

import (
	"context"
	"io"
	"log/slog"

	"github.com/chazu/brep/pkg/entity"
)

// nopHandler discards every record. Enabled returns false so callers skip
// attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

// OrNop returns l, or a silent logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// New builds a text logger writing to w, at debug level when verbose.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ID is an attribute for a single entity id.
func ID(key string, id entity.ID) slog.Attr {
	return slog.String(key, id.String())
}

// IDs is an attribute listing entity ids.
func IDs(key string, ids []entity.ID) slog.Attr {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	return slog.Any(key, s)
}
