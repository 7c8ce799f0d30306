package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON prints v indented. HTML escaping is off so video URLs and report
// text keep their & < > characters.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
