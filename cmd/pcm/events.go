package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/policyconf/internal/config"
	"github.com/alfredjeanlab/policyconf/internal/events"
	"github.com/alfredjeanlab/policyconf/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:               "events",
	Short:             "Stream configuration events from NATS",
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("nats")
		if url == "" {
			url = os.Getenv(config.Prefix + "NATS_URL")
		}
		if url == "" {
			url = activeRemoteNATSURL()
		}
		if url == "" {
			return fmt.Errorf("no NATS URL: pass --nats, set POLICYCONF_NATS_URL or add one to the active remote")
		}
		topic, _ := cmd.Flags().GetString("topic")

		sub, err := events.NewNATSSubscriber(url)
		if err != nil {
			return err
		}
		defer sub.Close()
		return streamEvents(cmd, sub, topic)
	},
}

// streamEvents prints messages until the subscription ends or the command
// context is cancelled.
func streamEvents(cmd *cobra.Command, sub events.Subscriber, topic string) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return err
	}
	defer cancel()

	out := cmd.OutOrStdout()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if jsonOutput {
				fmt.Fprintln(out, string(msg.Data))
				continue
			}
			fmt.Fprintf(out, "%s %s\n", ui.RenderAccent(msg.Topic), msg.Data)
		}
	}
}

func init() {
	eventsCmd.Flags().String("nats", "", "NATS server URL")
	eventsCmd.Flags().String("topic", events.TopicAll, "subject to subscribe to (NATS wildcards allowed)")
}
