package main

import (
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/importer"
	"github.com/chazu/brep/pkg/topology"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <source>",
	Short: "Print entity and topology counts and validation findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "", "input format: json or sexp")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format := lo.CoalesceOrEmpty(inspectFormat, cfg.Decode.Format, formatForPath(args[0]))

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}
	dec := importer.NewDecoder(timeout)
	var doc *entity.Document
	if f := dec.Lookup(format); f != nil {
		doc, err = dec.DecodeAs(f, data)
	} else {
		doc, err = dec.Decode(data)
	}
	if err != nil {
		return err
	}

	cmd.Printf("document version %d, %d entities\n", doc.Version, doc.Len())
	counts := doc.CountByKind()
	kinds := lo.Keys(counts)
	slices.Sort(kinds)
	for _, k := range kinds {
		cmd.Printf("  %-16s %d\n", k, counts[k])
	}

	g, err := topology.Build(doc, topology.Options{
		Epsilon:      cfg.Epsilon,
		Workers:      cfg.Workers,
		AllowPartial: true,
		Logger:       newLogger(cmd),
	})
	if err != nil {
		cmd.Printf("topology: %v\n", err)
		return err
	}
	c := g.Counts()
	cmd.Printf("topology: %d vertices, %d edges, %d loops, %d faces, %d shells, %d solids\n",
		c.Vertices, c.Edges, c.Loops, c.Faces, c.Shells, c.Solids)
	for i := range g.Solids {
		s := g.Solid(topology.SolidID(i))
		cmd.Printf("  solid %s closed=%t bounds=[%g %g %g]..[%g %g %g]\n", s.Source, s.Closed,
			s.Bounds.Min.X, s.Bounds.Min.Y, s.Bounds.Min.Z,
			s.Bounds.Max.X, s.Bounds.Max.Y, s.Bounds.Max.Z)
	}

	report := g.Validate()
	for _, f := range report.Errors {
		cmd.Println(f.String())
	}
	for _, f := range report.Warnings {
		cmd.Println(f.String())
	}
	if report.OK() {
		cmd.Println("ok")
	}
	return nil
}
