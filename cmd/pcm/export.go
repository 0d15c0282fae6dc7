package main

import (
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <index>",
	Short: "Export a saved configuration to a .policy file",
	Long: `Export a saved configuration to a .policy file.

Exporting needs the downloads permission. When it is not held, pcm asks for
it first unless --no-prompt is given.`,
	GroupID: "configurations",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		export := pcmClient.GrantAndExport
		if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
			export = pcmClient.Export
		}
		art, err := export(cmd.Context(), i)
		if err != nil {
			return err
		}
		printArtifact(cmd.OutOrStdout(), art)
		return nil
	},
}

func init() {
	exportCmd.Flags().Bool("no-prompt", false, "fail instead of asking for the downloads permission")
}
