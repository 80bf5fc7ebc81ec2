package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	Bs "github.com/maroda/buffon/sim"
	Bt "github.com/maroda/buffon/types"
)

func main() {
	var outPath string
	var target string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.StringVar(&target, "type", "snapshot", "schema target: snapshot, config, or record")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema, err := buildSchema(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build schema: %v\n", err)
		os.Exit(1)
	}

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema(target string) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	var schema *jsonschema.Schema
	switch target {
	case "snapshot":
		schema = reflector.Reflect(new(Bt.Snapshot))
		schema.Title = "Buffon Snapshot"
		schema.Description = "One published tick: the dropped batch, running stats, and convergence history"
	case "config":
		schema = reflector.Reflect(new(Bs.ConfigFile))
		schema.Title = "Buffon Run Configuration"
		schema.Description = "Validates the on-disk JSON or YAML run configuration"
	case "record":
		schema = reflector.Reflect(new(Bt.TickRecord))
		schema.Title = "Buffon Tick Record"
		schema.Description = "One stored tick as written by the recorder output adapter"
	default:
		return nil, fmt.Errorf("unknown schema target %q", target)
	}

	return schema, nil
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
