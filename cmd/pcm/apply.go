package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:     "apply <index>",
	Short:   "Load a saved configuration into the form and print its policies",
	GroupID: "configurations",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		out, err := pcmClient.Apply(cmd.Context(), i)
		if err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]string{"output": out})
		} else if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolP("quiet", "q", false, "do not print the generated policies")
}
