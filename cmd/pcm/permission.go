package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/policyconf/internal/permission"
	"github.com/alfredjeanlab/policyconf/internal/ui"
)

var permissionCmd = &cobra.Command{
	Use:     "permission",
	Short:   "Manage the downloads permission that gates export",
	GroupID: "form",
}

var permissionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the downloads permission is held",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		held, err := pcmClient.ExportEnabled(cmd.Context())
		if err != nil {
			return err
		}
		printPermission(cmd, held)
		return nil
	},
}

var permissionGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Request the downloads permission",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		granted, err := pcmClient.GrantExport(cmd.Context())
		if err != nil {
			return err
		}
		printPermission(cmd, granted)
		return nil
	},
}

var permissionRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Give up the downloads permission",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pcmClient.RevokeExport(cmd.Context()); err != nil {
			return err
		}
		printPermission(cmd, false)
		return nil
	},
}

func printPermission(cmd *cobra.Command, granted bool) {
	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]any{"permission": permission.Downloads, "granted": granted})
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", permission.Downloads, ui.RenderBool(granted))
}

func init() {
	permissionCmd.AddCommand(permissionStatusCmd)
	permissionCmd.AddCommand(permissionGrantCmd)
	permissionCmd.AddCommand(permissionRevokeCmd)
}
