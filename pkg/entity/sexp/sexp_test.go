package sexp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/internal/fixture"
)

const square = `; unit edge
(brep :version 1)
(vertex 1 :payload [0 0 0])
(vertex 2 :payload [1 0 0])
(line 30 :payload [0 0 0 1 0 0])
(edge 9 :payload [0 1] :refs [1 2 30])
`

func TestDecode(t *testing.T) {
	doc, err := Format{}.Decode([]byte(square))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, 4, doc.Len())
	assert.Equal(t, []entity.ID{1, 2, 30, 9}, doc.Order)

	e := doc.Get(9)
	require.NotNil(t, e)
	assert.Equal(t, entity.KindEdge, e.Kind)
	assert.Equal(t, []entity.ID{1, 2, 30}, e.References)
}

func TestSniff(t *testing.T) {
	assert.True(t, Format{}.Sniff([]byte("\n  (brep :version 1)")))
	assert.True(t, Format{}.Sniff([]byte("; comment")))
	assert.False(t, Format{}.Sniff([]byte(`{"version": 1}`)))
	assert.False(t, Format{}.Sniff(nil))
}

func TestDecodeHyphenatedKindsAndNumbers(t *testing.T) {
	src := `(brep :version 1)
(bspline-curve 3 :payload [1 2 0 0 1 1 0 -1.5 0 1 1 2.5e-3 0 1])
(sphere 4 :payload [0 0 0 0 0 1 1 0 0 2])`
	doc, err := Format{}.Decode([]byte(src))
	require.NoError(t, err)
	c := doc.Get(3)
	require.NotNil(t, c)
	assert.Equal(t, entity.KindBSplineCurve, c.Kind)
	assert.Equal(t, -1.5, c.Payload[7])
	assert.InDelta(t, 0.0025, c.Payload[11], 1e-15)
	assert.Equal(t, entity.KindSphere, doc.Get(4).Kind)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"no header", `(vertex 1 :payload [0 0 0])`, entity.ErrMalformedDocument},
		{"version", `(brep :version 3)`, entity.ErrUnsupportedVersion},
		{"duplicate header", "(brep :version 1)\n(brep :version 1)", entity.ErrMalformedDocument},
		{"duplicate id", "(brep :version 1)\n(point 1 :payload [0 0 0])\n(point 1 :payload [0 0 0])", entity.ErrMalformedDocument},
		{"truncated payload", "(brep :version 1)\n(point 1 :payload [0 0])", entity.ErrMalformedDocument},
		{"bad id", "(brep :version 1)\n(point -2 :payload [0 0 0])", entity.ErrMalformedDocument},
		{"unknown keyword", "(brep :version 1)\n(point 1 :colour 3)", entity.ErrMalformedDocument},
		{"unbalanced", "(brep :version 1)\n(point 1 :payload [0 0 0]", entity.ErrMalformedDocument},
		{"only header missing", "(+ 1 2)", entity.ErrMalformedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Format{}.Decode([]byte(tt.src))
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeErrorKeepsEntity(t *testing.T) {
	_, err := Format{}.Decode([]byte("(brep :version 1)\n(point 7 :payload [0 0])"))
	var de *entity.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, entity.ID(7), de.EntityID)
}

func TestTimeout(t *testing.T) {
	// A channel that never delivers stands in for a runaway program.
	ch := make(chan evalResult)
	stopped := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := waitWithTimeout(ch, 50*time.Millisecond, func() { close(stopped) })
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, entity.ErrMalformedDocument)
		assert.Contains(t, err.Error(), "timed out")
	case <-time.After(5 * time.Second):
		t.Fatal("timeout did not fire")
	}
	select {
	case <-stopped:
	default:
		t.Fatal("evaluation was not told to stop")
	}
}

const spin = `(brep :version 1)
(for [(def i 0) true (def i (+ i 1))] i)
`

func TestHaltStopsRunawayProgram(t *testing.T) {
	h := &halt{}
	done := make(chan error, 1)
	go func() {
		_, err := evaluate(spin, h)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	h.stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, entity.ErrMalformedDocument)
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation kept running after stop")
	}
}

func TestDecodeRunawayTimesOut(t *testing.T) {
	_, err := Format{Timeout: 50 * time.Millisecond}.Decode([]byte(spin))
	require.ErrorIs(t, err, entity.ErrMalformedDocument)
	assert.Contains(t, err.Error(), "timed out")
}

func TestWaitReturnsResult(t *testing.T) {
	ch := make(chan evalResult, 1)
	ch <- evalResult{doc: entity.NewDocument(1)}
	doc, err := waitWithTimeout(ch, time.Second, func() { t.Error("stop called without a timeout") })
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"(brep :version 1)", `(brep "__kw_version" 1)`},
		{"(bspline-surface 1)", "(bspline_surface 1)"},
		{"[-1 2e-6 x-y]", "[-1 2e-6 x_y]"},
		{"; note\n(a)", "// note\n(a)"},
		{`"a-b :c"`, `"a-b :c"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, preprocessSource(tt.in))
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cyl, _ := fixture.Cylinder()
	for name, doc := range map[string]*entity.Document{
		"cube":     fixture.Cube(),
		"cylinder": cyl,
		"patch":    fixture.Patch(),
	} {
		t.Run(name, func(t *testing.T) {
			src := Encode(doc)
			require.True(t, strings.HasPrefix(string(src), "(brep :version 1)\n"))

			back, err := Format{}.Decode(src)
			require.NoError(t, err)
			assert.Equal(t, doc.Len(), back.Len())
			for _, e := range doc.Sorted() {
				got := back.Get(e.ID)
				require.NotNil(t, got, "entity %s", e.ID)
				assert.Equal(t, e.Kind, got.Kind)
				assert.InDeltaSlice(t, e.Payload, got.Payload, 1e-12)
				assert.Equal(t, e.References, got.References)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3", formatNumber(3))
	assert.Equal(t, "-0.25", formatNumber(-0.25))
	assert.Equal(t, "1e20", formatNumber(1e20))
	assert.Equal(t, "6.283185307179586", formatNumber(6.283185307179586))
}
