package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"intake-notifications/internal/notification/audit"
	"intake-notifications/internal/notification/diagnostics"
	"intake-notifications/internal/notification/resolver"
)

func newEnvCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show which relay variables the local environment provides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			report := a.Harness.CheckEnvironment()
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderEnvironment(report))
			return nil
		},
	}
}

func newReadyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check whether a new submission would notify any administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.configuredApp(cmd)
			if err != nil {
				return err
			}
			report := a.Harness.CheckReadiness(cmd.Context())
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Ready", "Admin Emails", "Message"},
				[][]string{{yesNo(report.Ready), strconv.Itoa(report.AdminEmailCount), report.Message}},
			))
			return nil
		},
	}
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Resolve and show the active relay configuration (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.configuredApp(cmd)
			if err != nil {
				return err
			}
			cfg := a.Service.GetConfig()
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]interface{}{
					"configured": cfg != nil,
					"config":     cfg,
				})
			}
			if cfg == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Notification service is not configured")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Source", cfg.Source},
					{"Service ID", cfg.ServiceID},
					{"Template ID", cfg.TemplateID},
					{"Public Key", cfg.PublicKey},
					{"Private Key", yesNo(cfg.HasPrivateKey)},
					{"From Name", cfg.FromName},
					{"From Email", cfg.FromEmail},
				},
			))
			return nil
		},
	}
}

func newAdminsCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "admins",
		Short: "List the administrator addresses new submissions are sent to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			if refresh {
				if err := a.Directory.Invalidate(cmd.Context()); err != nil {
					return fmt.Errorf("drop cached admin list: %w", err)
				}
			}
			emails, err := a.Directory.AdminEmails(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]interface{}{"emails": emails})
			}
			rows := make([][]string, 0, len(emails))
			for i, e := range emails {
				rows = append(rows, []string{strconv.Itoa(i + 1), e})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Email"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Drop the cached list before loading")
	return cmd
}

func newDeliveriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deliveries <submission-id>",
		Short: "Show the recorded delivery outcomes for one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			store, err := a.AuditLog(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := store.ForSubmission(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load deliveries: %w", err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No deliveries recorded for %s\n", args[0])
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDeliveries(entries))
			return nil
		},
	}
}

func renderDeliveries(entries []audit.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.AttemptedAt.Format(time.RFC3339),
			e.Recipient,
			yesNo(e.Delivered),
			e.ErrorCode,
		})
	}
	return renderTable([]string{"Attempted At", "Recipient", "Delivered", "Error"}, rows)
}

func newTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test <email>",
		Short: "Send a test notification to one address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.configuredApp(cmd)
			if err != nil {
				return err
			}
			res := a.Service.Test(cmd.Context(), args[0])
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			}
			if !res.Success {
				return fmt.Errorf("test notification not delivered")
			}
			return nil
		},
	}
}

func newFlowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flow [email]",
		Short: "Run the end-to-end notification flow with a synthetic submission",
		Long: "Runs every step a real submission goes through and sends one test message.\n" +
			"Without an address the first registered administrator receives it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.configuredApp(cmd)
			if err != nil {
				return err
			}
			address := ""
			if len(args) == 1 {
				address = args[0]
			}
			report := a.Harness.RunFullFlow(cmd.Context(), address)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderFlow(report))
			}
			if !report.Success {
				return fmt.Errorf("notification flow failed")
			}
			return nil
		},
	}
}

func renderEnvironment(report diagnostics.EnvironmentReport) string {
	rows := make([][]string, 0, len(resolver.AllVars))
	for _, name := range resolver.AllVars {
		source, found := report.Sources[name]
		if !found {
			source = "-"
		}
		rows = append(rows, []string{name, yesNo(found), source})
	}
	return fmt.Sprintf("%s\nConfigured: %s (%d/%d required)\n",
		renderTable([]string{"Variable", "Found", "Source"}, rows),
		yesNo(report.Configured), report.RequiredFound, len(resolver.RequiredVars))
}

var flowOrder = []string{
	diagnostics.StepConfigured,
	diagnostics.StepAdminEmailsLoaded,
	diagnostics.StepContentBuilt,
	diagnostics.StepTestDispatched,
}

func renderFlow(report diagnostics.FullFlowReport) string {
	rows := make([][]string, 0, len(report.Steps))
	seen := make(map[string]bool, len(flowOrder))
	for _, step := range flowOrder {
		if ok, present := report.Steps[step]; present {
			rows = append(rows, []string{step, yesNo(ok)})
			seen[step] = true
		}
	}
	var extra []string
	for step := range report.Steps {
		if !seen[step] {
			extra = append(extra, step)
		}
	}
	sort.Strings(extra)
	for _, step := range extra {
		rows = append(rows, []string{step, yesNo(report.Steps[step])})
	}
	return fmt.Sprintf("%s\n%s\n", renderTable([]string{"Step", "Passed"}, rows), report.Message)
}
