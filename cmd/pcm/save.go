package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:     "save <name>",
	Short:   "Save the current form as a named configuration",
	GroupID: "configurations",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := pcmClient.Save(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printList(cmd.OutOrStdout(), view)
	},
}
