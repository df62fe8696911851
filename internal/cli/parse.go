package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/timer-ocr-mcp/internal/duration"
)

// parseOutput is printed by parse --json.
type parseOutput struct {
	Text      string `json:"text"`
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	Millis    int64  `json:"millis"`
	Formatted string `json:"formatted"`
}

func (a *app) newParseCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Parse timer display text into hours and minutes",
		Example: `  timer-ocr-mcp parse 12:34
  timer-ocr-mcp parse 545 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			d, err := duration.Parse(text)
			if err != nil {
				return err
			}
			out := parseOutput{
				Text:      text,
				Hours:     d.Hours,
				Minutes:   d.Minutes,
				Millis:    d.Millis(),
				Formatted: d.String(),
			}
			if jsonOutput {
				return writeJSON(cmd, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d ms)\n", out.Formatted, out.Millis)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// writeJSON prints v indented to the command output.
func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
