package sexp

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/brep/pkg/entity"
)

// Encode writes doc as an s-expression program, one entity per line,
// ordered by id. Decoding the result yields an equal document.
func Encode(doc *entity.Document) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "(brep :version %d)\n", doc.Version)
	for _, e := range doc.Sorted() {
		fmt.Fprintf(&buf, "(%s %d", e.Kind, uint64(e.ID))
		if len(e.Payload) > 0 {
			buf.WriteString(" :payload [")
			for i, v := range e.Payload {
				if i > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(formatNumber(v))
			}
			buf.WriteByte(']')
		}
		if len(e.References) > 0 {
			buf.WriteString(" :refs [")
			for i, r := range e.References {
				if i > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(strconv.FormatUint(uint64(r), 10))
			}
			buf.WriteByte(']')
		}
		buf.WriteString(")\n")
	}
	return buf.Bytes()
}

// formatNumber prints integral values without a fraction and everything
// else in the shortest form that reads back exactly. The reader does not
// accept a '+' in exponents.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	s = strings.Replace(s, "e+", "e", 1)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
