package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"BountyBot/pkg/command"

	"github.com/spf13/cobra"
)

type parseOutput struct {
	Command   *command.BountyCommand `json:"command"`
	Remainder string                 `json:"remainder"`
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [text...]",
		Short: "Parse comment text and print the recognised command as JSON",
		Long: `Parse comment text the way the webhook does and print the result as JSON.
The text is read from the arguments, or from stdin when none are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}

			cmdResult := command.Parse(text)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(parseOutput{
				Command:   cmdResult,
				Remainder: command.Strip(text, cmdResult),
			})
		},
	}
}
