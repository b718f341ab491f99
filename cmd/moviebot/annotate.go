package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iai-group/MovieBot-sub000/internal/app"
	"github.com/iai-group/MovieBot-sub000/types"
)

func newAnnotateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate <utterance>",
		Short: "Print the slot constraints found in an utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Build(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			constraints := a.Annotator.AnnotateAll(strings.Join(args, " "))
			if len(constraints) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no constraints found")
				return nil
			}
			act, err := types.NewUserAct(types.IntentReveal, constraints...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), types.FormatActs([]types.DialogueAct{act}))
			return nil
		},
	}
}
