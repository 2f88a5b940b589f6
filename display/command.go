// Package display decides how CLI commands render results.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// OutputEnv selects JSON output for every command when set to "json"
const OutputEnv = "REFRESH_OUTPUT"

// ShouldOutputJSON determines if a command should output JSON based on its
// --json flag, falling back to REFRESH_OUTPUT for cron and CI wrappers
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}
	return os.Getenv(OutputEnv) == "json"
}

// OutputJSON prints v as indented JSON to stdout
func OutputJSON(v interface{}) error {
	return WriteJSON(os.Stdout, v)
}

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
