package logx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chazu/brep/pkg/entity"
)

func TestNopDiscards(t *testing.T) {
	l := OrNop(nil)
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.Error("never shown", ID("entity", 7))
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, true).Debug("shown", IDs("ids", []entity.ID{3, 4}))
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "#3")
}
