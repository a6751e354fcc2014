package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/brep/pkg/config"
	"github.com/chazu/brep/pkg/importer"
	"github.com/chazu/brep/pkg/mesh"
)

var (
	convertFormat    string
	convertOut       string
	convertTo        string
	convertTolerance float64
	convertEpsilon   float64
	convertPartial   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <source>",
	Short: "Tessellate a BREP document and write a mesh",
	Long: `Decodes a BREP document, validates its topology and writes one mesh per
solid as STL, OBJ or JSON. The input format is taken from -f, then from the
file extension (.json, .brep), then sniffed from the content. Without -o the
output is written next to the source with the extension of --to; use -o -
for standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&convertFormat, "format", "f", "", "input format: json or sexp")
	f.StringVarP(&convertOut, "output", "o", "", "output path, - for stdout")
	f.StringVar(&convertTo, "to", "", "output format: stl, obj or json")
	f.Float64Var(&convertTolerance, "tolerance", 0, "maximum chord deviation of the mesh")
	f.Float64Var(&convertEpsilon, "epsilon", 0, "topology tolerance")
	f.BoolVar(&convertPartial, "partial", false, "keep valid solids when others fail")
	rootCmd.AddCommand(convertCmd)
}

// convertConfig applies convert's flags over the loaded config.
func convertConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Decode.Format = convertFormat
	}
	if flags.Changed("to") {
		cfg.Output.Format = convertTo
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = convertTolerance
	}
	if flags.Changed("epsilon") {
		cfg.Epsilon = convertEpsilon
	}
	if flags.Changed("partial") {
		cfg.Partial = convertPartial
	}
	return cfg, cfg.Validate()
}

func runConvert(cmd *cobra.Command, args []string) error {
	src := args[0]
	cfg, err := convertConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Decode.Format == "" {
		cfg.Decode.Format = formatForPath(src)
	}

	data, err := readInput(cmd, src)
	if err != nil {
		return err
	}
	opts := importer.FromConfig(cfg)
	opts.Logger = newLogger(cmd)
	res, err := importer.Import(cmd.Context(), data, opts)
	if err != nil {
		return err
	}

	dest := convertOut
	if dest == "" {
		if src == "-" {
			dest = "-"
		} else {
			dest = strings.TrimSuffix(src, filepath.Ext(src)) + "." + cfg.Output.Format
		}
	}
	if err := writeMesh(cmd, dest, cfg.Output.Format, res); err != nil {
		return err
	}

	for _, f := range res.Report.Errors {
		cmd.PrintErrf("rejected: %s\n", f)
	}
	for _, f := range res.FaceFailures {
		cmd.PrintErrf("face skipped: %v\n", f)
	}
	if dest != "-" {
		cmd.Printf("wrote %s: %d solids, %d triangles\n", dest, len(res.Solids), res.Mesh.TriangleCount())
	}
	return nil
}

func writeMesh(cmd *cobra.Command, dest, format string, res *importer.Result) error {
	if format == "stl" && dest != "-" {
		return mesh.SaveSTL(dest, res.Mesh)
	}
	if dest == "-" {
		return encodeMesh(cmd.OutOrStdout(), format, res)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if err := closeAfter(f, encodeMesh(f, format, res)); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// closeAfter closes c once writing has finished and returns the write
// error, or the close error if writing succeeded.
func closeAfter(c io.Closer, err error) error {
	if cerr := c.Close(); err == nil {
		return cerr
	}
	return err
}

func encodeMesh(w io.Writer, format string, res *importer.Result) error {
	switch format {
	case "stl":
		return mesh.WriteSTL(w, res.Mesh)
	case "obj":
		parts := make([]*mesh.IndexedMesh, len(res.Solids))
		for i, s := range res.Solids {
			parts[i] = s.Mesh
		}
		return mesh.WriteOBJ(w, parts...)
	case "json":
		return mesh.WriteJSON(w, res.Export())
	}
	return fmt.Errorf("unknown output format %q", format)
}
