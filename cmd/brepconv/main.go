// Command brepconv converts BREP documents into triangle meshes.
//
//	brepconv convert part.json -o part.stl
//	brepconv convert part.brep --to obj --tolerance 0.001
//	brepconv inspect part.json
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
