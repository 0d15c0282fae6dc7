package main

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/permission"
	pcsync "github.com/alfredjeanlab/policyconf/internal/sync"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	Short:   "Back up or restore the saved configurations of local storage",
	GroupID: "system",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Write one backup to every configured destination",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		local, err := openLocal(cmd.Context(), cfg, permission.Deny, nil)
		if err != nil {
			return err
		}
		defer local.Close()

		dests := backupDestinations(cmd.Context(), cfg, log.WithComponent("backup"))
		if len(dests) == 0 {
			return fmt.Errorf("no backup destination configured (set POLICYCONF_BACKUP_S3_BUCKET or POLICYCONF_BACKUP_GIT_REPO)")
		}
		n, err := pcsync.RunOnce(cmd.Context(), local.store, dests)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backed up %d bytes to %d destination(s)\n", n, len(dests))
		return nil
	},
}

var backupDumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Write the saved configurations as JSONL to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		local, err := openLocal(cmd.Context(), cfg, permission.Deny, nil)
		if err != nil {
			return err
		}
		defer local.Close()

		if len(args) == 0 {
			return pcsync.ExportJSONL(cmd.Context(), local.store, cmd.OutOrStdout())
		}
		f, err := renameio.NewPendingFile(args[0], renameio.WithPermissions(0o644))
		if err != nil {
			return err
		}
		defer f.Cleanup()
		if err := pcsync.ExportJSONL(cmd.Context(), local.store, f); err != nil {
			return err
		}
		return f.CloseAtomicallyReplace()
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file|->",
	Short: "Replace the saved configurations with a JSONL backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		local, err := openLocal(cmd.Context(), cfg, permission.Deny, nil)
		if err != nil {
			return err
		}
		defer local.Close()

		n, err := pcsync.Restore(cmd.Context(), local.store, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d configuration(s)\n", n)
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupRunCmd)
	backupCmd.AddCommand(backupDumpCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}
