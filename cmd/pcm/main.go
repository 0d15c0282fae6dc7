package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/alfredjeanlab/policyconf/internal/client"
	"github.com/alfredjeanlab/policyconf/internal/config"
	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/permission"
	"github.com/alfredjeanlab/policyconf/internal/ui"
)

var (
	remoteURL  string
	transport  string
	grpcServer string
	jsonOutput bool

	cfg       *config.Config
	pcmClient client.Client
)

// defaultRemote returns POLICYCONF_REMOTE or the URL of the active named remote.
func defaultRemote() string {
	if s := os.Getenv(config.Prefix + "REMOTE"); s != "" {
		return s
	}
	return activeRemoteURL()
}

// loadConfig reads the configuration and sets up logging.
func loadConfig() error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: c.LogLevel, Console: c.LogConsole})
	cfg = c
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "pcm <command>",
	Short:         "Manage saved browser policy configurations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetColor(ui.ShouldUseColor() && !jsonOutput)
		switch transport {
		case "http":
		case "grpc":
			return connectGRPC()
		default:
			return fmt.Errorf("unknown transport %q: want http or grpc", transport)
		}
		if remoteURL != "" {
			pcmClient = client.NewHTTPClient(remoteURL, activeRemoteToken())
			return nil
		}
		if err := loadConfig(); err != nil {
			return err
		}
		local, err := openLocal(cmd.Context(), cfg, permission.NewTerminalPrompter(), nil)
		if err != nil {
			return err
		}
		pcmClient = client.NewLocalClient(local.manager, local)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pcmClient != nil {
			pcmClient.Close()
		}
	},
}

// connectGRPC points pcmClient at the gRPC server named by --grpc-server.
func connectGRPC() error {
	if grpcServer == "" {
		return fmt.Errorf("--transport=grpc needs --grpc-server or %sGRPC_SERVER", config.Prefix)
	}
	var opts []grpc.DialOption
	if tok := activeRemoteToken(); tok != "" {
		opts = append(opts, client.WithBearerToken(tok))
	}
	c, err := client.NewGRPCClient(grpcServer, opts...)
	if err != nil {
		return err
	}
	pcmClient = c
	return nil
}

// skipClient overrides PersistentPreRunE for commands that do not talk to
// the configuration panel.
func skipClient(cmd *cobra.Command, args []string) error { return nil }

func init() {
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", defaultRemote(), "URL of a pcm server (empty = local state)")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "remote transport: http or grpc")
	rootCmd.PersistentFlags().StringVar(&grpcServer, "grpc-server", os.Getenv(config.Prefix+"GRPC_SERVER"), "host:port of a pcm gRPC server (used with --transport=grpc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "configurations", Title: "Configurations:"},
		&cobra.Group{ID: "form", Title: "Form:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Configurations
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	// Form
	rootCmd.AddCommand(outputCmd)
	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(permissionCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// parseIndex parses a configuration index argument.
func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q: want a non-negative integer", arg)
	}
	return i, nil
}
