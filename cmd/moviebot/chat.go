package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/agent"
	"github.com/iai-group/MovieBot-sub000/internal/app"
	"github.com/iai-group/MovieBot-sub000/types"
)

func newChatCmd(e *env) *cobra.Command {
	var stream bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot on the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Build(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return chat(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout(), stream, e.logger)
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "stream replies as they are generated")
	return cmd
}

func chat(ctx context.Context, a *app.App, in io.Reader, out io.Writer, stream bool, logger *zap.Logger) error {
	ctx = agent.WithStateKey(ctx, uuid.NewString())
	turn, err := a.Manager.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "MovieBot: %s\n", turn.Reply)
	printOptions(out, turn.Options)

	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent:           a.Agent,
		EnableStreaming: stream,
	})
	options := turn.Options
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "User: ")
		input, rErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if rErr != nil {
				return nil
			}
			continue
		}
		input = pickOption(input, options)

		fmt.Fprint(out, "MovieBot: ")
		iter := runner.Run(ctx, []adk.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			if event.Output == nil || event.Output.MessageOutput == nil {
				continue
			}
			if err := printMessage(out, event.Output.MessageOutput); err != nil {
				return err
			}
		}
		fmt.Fprintln(out)

		active, err := a.Manager.Active(ctx)
		if err != nil {
			return err
		}
		if !active {
			logger.Debug("Conversation ended")
			return nil
		}
		conv, err := a.Manager.Conversation(ctx)
		if err != nil {
			return err
		}
		options = conv.Options()
		printOptions(out, options)
		if rErr != nil {
			return nil
		}
	}
}

func printMessage(out io.Writer, mo *adk.MessageVariant) error {
	if !mo.IsStreaming {
		fmt.Fprint(out, mo.Message.Content)
		return nil
	}
	defer mo.MessageStream.Close()
	for {
		chunk, err := mo.MessageStream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprint(out, chunk.Content)
	}
}

func printOptions(out io.Writer, options types.DialogueOptions) {
	for i, o := range options {
		if len(o.Texts) > 0 {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, o.Texts[0])
		}
	}
}

// pickOption maps a number typed by the user to the option it labels.
func pickOption(input string, options types.DialogueOptions) string {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(options) || len(options[n-1].Texts) == 0 {
		return input
	}
	return options[n-1].Texts[0]
}
