package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var formCmd = &cobra.Command{
	Use:     "form",
	Short:   "Inspect or replace the current form state",
	GroupID: "form",
}

var formShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the serialized form state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := pcmClient.FormState(cmd.Context())
		if err != nil {
			return err
		}
		return printState(cmd, state)
	},
}

var formLoadCmd = &cobra.Command{
	Use:   "load <file|->",
	Short: "Replace the form state with a serialized state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		if !json.Valid(data) {
			return fmt.Errorf("%s is not valid JSON", args[0])
		}
		return pcmClient.LoadForm(cmd.Context(), data)
	},
}

var formResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every field of the form",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pcmClient.ResetForm(cmd.Context())
	},
}

func printState(cmd *cobra.Command, state json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, state, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}

func init() {
	formCmd.AddCommand(formShowCmd)
	formCmd.AddCommand(formLoadCmd)
	formCmd.AddCommand(formResetCmd)
}
