package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/internal/config"
	"github.com/iai-group/MovieBot-sub000/internal/logging"
)

// env carries what PersistentPreRunE loaded to the subcommands.
type env struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "moviebot",
		Short:         "A conversational movie recommender.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.cfgFile)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = logging.NewStderr(cfg.Logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&e.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	root.AddCommand(newChatCmd(e), newAnnotateCmd(e))
	return root
}
