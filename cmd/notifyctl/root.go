package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"intake-notifications/internal/app"
	"intake-notifications/internal/common/config"
	"intake-notifications/internal/common/logger"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	logLevel   *string

	once   sync.Once
	app    *app.App
	appErr error
}

func newCommandContext(configFlag *string, jsonFlag *bool, logLevel *string) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag, logLevel: logLevel}
}

// ensureApp loads configuration and wires the pipeline once per invocation.
// notifyctl never writes the audit log and exports no telemetry.
func (c *commandContext) ensureApp(cmd *cobra.Command) (*app.App, error) {
	c.once.Do(func() {
		var (
			cfg *config.Config
			err error
		)
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			cfg, err = config.LoadFromFile(path)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			c.appErr = err
			return
		}
		zapLog := logger.New(*c.logLevel, "console")
		c.app, c.appErr = app.New(cmd.Context(), cfg, zapLog, app.Options{})
	})
	return c.app, c.appErr
}

// configuredApp is ensureApp followed by configuration resolution.
func (c *commandContext) configuredApp(cmd *cobra.Command) (*app.App, error) {
	a, err := c.ensureApp(cmd)
	if err != nil {
		return nil, err
	}
	if !a.Service.IsConfigured() {
		a.Service.Bootstrap(cmd.Context())
	}
	return a, nil
}

// close releases the pipeline opened by ensureApp. It is safe to call twice.
func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// execute runs the command tree and always releases the pipeline. Cobra
// skips post-run hooks when RunE returns an error.
func execute(rootCmd *cobra.Command, ctx *commandContext) error {
	defer ctx.close()
	return rootCmd.Execute()
}

func newRootCommand() (*cobra.Command, *commandContext) {
	var configFlag string
	var jsonFlag bool
	var logLevel string

	ctx := newCommandContext(&configFlag, &jsonFlag, &logLevel)

	rootCmd := &cobra.Command{
		Use:           "notifyctl",
		Short:         "Inspect and exercise administrator notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of tables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newEnvCommand(ctx))
	rootCmd.AddCommand(newReadyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newAdminsCommand(ctx))
	rootCmd.AddCommand(newDeliveriesCommand(ctx))
	rootCmd.AddCommand(newTestCommand(ctx))
	rootCmd.AddCommand(newFlowCommand(ctx))

	return rootCmd, ctx
}
