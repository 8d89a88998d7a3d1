package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"theonebook/internal/bootstrap"
	"theonebook/internal/config"
	"theonebook/internal/util"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.FileConfig
	configErr  error
}

func (c *commandContext) ensureConfig() (config.FileConfig, error) {
	c.configOnce.Do(func() {
		path := config.ConfigPath
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		util.InitLogger(cfg.LogLevel, "text")
		c.config = cfg
	})
	return c.config, c.configErr
}

// withRuntime builds the app for one command and releases it afterwards.
func (c *commandContext) withRuntime(ctx context.Context, fn func(*bootstrap.Runtime, config.FileConfig) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	rt, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt, cfg)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "bookctl",
		Short:         "The One Book maintenance CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default config.yaml or $CONFIG_PATH)")

	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newHashPasswordCommand())
	return rootCmd
}
