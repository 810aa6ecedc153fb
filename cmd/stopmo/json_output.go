package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONList prints an empty history as [] rather than null.
func writeJSONList[T any](cmd *cobra.Command, items []T) error {
	if items == nil {
		items = []T{}
	}
	return writeJSON(cmd, items)
}
