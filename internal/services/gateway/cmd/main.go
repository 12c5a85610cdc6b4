package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli carries state shared by the subcommands once the root pre-run has
// loaded the configuration.
type cli struct {
	configPath string
	cfg        Config
	zl         *zap.Logger
	log        *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "anuja",
		Short: "ANUJA - Smart Farming Partner",
		Long: `ANUJA turns soil and crop readings into rule-based farming advice:
soil suggestions, a fertilizer guide, a watering schedule, planting
supplements, a 4-week pest and fertilizer planner and, when a city is
given, live weather with a seed recommendation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			zl, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			c.cfg, c.zl, c.log = cfg, zl, zl.Sugar()
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.zl != nil {
				_ = c.zl.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (default $ANUJA_CONFIG)")
	root.AddCommand(newServeCmd(c), newAdviseCmd(c))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
