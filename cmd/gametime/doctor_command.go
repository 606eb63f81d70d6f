package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gametime/internal/notifications"
	"gametime/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "doctor [folder]",
		Short: "Check configuration, dataset folder access and Steam connectivity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			folder, err := ctx.folder(args)
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, folder)
			if notify {
				results = append(results, checkNotifications(cmd, cfg.Notifications.NtfyTopic, notifications.NewService(cfg)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPreflight(results))
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

func checkNotifications(cmd *cobra.Command, topic string, service notifications.Service) preflight.Result {
	result := preflight.Result{Name: "Notifications"}
	if topic == "" {
		result.Detail = "notifications.ntfy_topic is not set"
		return result
	}
	if err := service.TestNotification(cmd.Context()); err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Detail = "Test notification sent"
	return result
}

func renderPreflight(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "OK"
		if !r.Passed {
			status = "FAIL"
		}
		rows = append(rows, []string{r.Name, status, r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}
