package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/policyconf/internal/config"
	"github.com/alfredjeanlab/policyconf/internal/events"
	"github.com/alfredjeanlab/policyconf/internal/hooks"
)

func hookFromConfig(c *config.Config) hooks.Hook {
	return hooks.Hook{
		Command: c.HookCommand,
		Events:  c.HookEvents,
		Timeout: c.HookTimeout,
		Dir:     c.HookDir,
	}
}

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Run POLICYCONF_HOOK_COMMAND for events received from NATS",
	Long: `Run POLICYCONF_HOOK_COMMAND for configuration events received from NATS.

On applied events the hook receives the generated policies.json on stdin,
fetched from the configuration panel (the --remote server when set).`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			if err := loadConfig(); err != nil {
				return err
			}
		}
		if cfg.HookCommand == "" {
			return fmt.Errorf("no hook command: set %sHOOK_COMMAND", config.Prefix)
		}

		url, _ := cmd.Flags().GetString("nats")
		if url == "" {
			url = cfg.NATSURL
		}
		if url == "" {
			url = activeRemoteNATSURL()
		}
		if url == "" {
			return fmt.Errorf("no NATS URL: pass --nats, set %sNATS_URL or add one to the active remote", config.Prefix)
		}

		sub, err := events.NewNATSSubscriber(url)
		if err != nil {
			return err
		}
		defer sub.Close()

		fmt.Fprintf(os.Stderr, "running %q on %v events from %s\n", cfg.HookCommand, cfg.HookEvents, url)
		h := hooks.NewHandler(hookFromConfig(cfg), pcmClient.Output)
		return h.StartSubscriber(cmd.Context(), sub)
	},
}

func init() {
	hooksCmd.Flags().String("nats", "", "NATS server URL")
}
