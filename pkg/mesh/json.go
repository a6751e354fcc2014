package mesh

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/chazu/brep/pkg/entity"
)

// palette assigns distinct colours to parts.
var palette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// PartColor returns the palette colour for the i'th part.
func PartColor(i int) string {
	return palette[i%len(palette)]
}

// MeshData is the JSON form of one solid's mesh.
type MeshData struct {
	Vertices []float32   `json:"vertices"`
	Normals  []float32   `json:"normals"`
	Indices  []uint32    `json:"indices"`
	FaceIDs  []entity.ID `json:"faceIds"`
	PartName string      `json:"partName"`
	Color    string      `json:"color"`
}

// Issue is a JSON-serializable failure or warning.
type Issue struct {
	Code    string      `json:"code"`
	IDs     []entity.ID `json:"ids,omitempty"`
	Message string      `json:"message"`
}

// Export is the JSON document written by WriteJSON.
type Export struct {
	RunID    string     `json:"runId,omitempty"`
	Meshes   []MeshData `json:"meshes"`
	Errors   []Issue    `json:"errors"`
	Warnings []Issue    `json:"warnings"`
}

// NewExport wraps meshes with palette colours.
func NewExport(runID string, meshes ...*IndexedMesh) *Export {
	ex := &Export{
		RunID:    runID,
		Meshes:   []MeshData{},
		Errors:   []Issue{},
		Warnings: []Issue{},
	}
	for i, m := range meshes {
		ex.Meshes = append(ex.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			FaceIDs:  m.FaceIDs,
			PartName: m.PartName,
			Color:    PartColor(i),
		})
	}
	return ex
}

// WriteJSON encodes ex to w.
func WriteJSON(w io.Writer, ex *Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ex); err != nil {
		return fmt.Errorf("mesh: write json: %w", err)
	}
	return nil
}
