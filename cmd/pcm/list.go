package main

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved configurations",
	GroupID: "configurations",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := pcmClient.List(cmd.Context())
		if err != nil {
			return err
		}
		return printList(cmd.OutOrStdout(), view)
	},
}
