package main

import (
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <index>",
	Short:   "Remove a saved configuration",
	GroupID: "configurations",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		view, err := pcmClient.Remove(cmd.Context(), i)
		if err != nil {
			return err
		}
		return printList(cmd.OutOrStdout(), view)
	},
}
