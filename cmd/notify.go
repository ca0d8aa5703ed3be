package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baza-crm/widget-cli/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify <message>",
	Short: "Send a message to the configured chat webhook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("notify"); err != nil {
			return err
		}

		notifier := notify.NewNotifier(cfg.Notify.WebhookURL)
		if err := notifier.Send(cmd.Context(), notify.Message{Text: args[0]}); err != nil {
			return err
		}
		fmt.Println("notification sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
