package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Agent)(nil)

// Agent exposes a Manager as an eino ADK agent. Each run is one user turn in
// the conversation keyed by the context.
type Agent struct {
	name        string
	description string
	manager     *Manager
}

func NewAgent(name, description string, manager *Manager) *Agent {
	return &Agent{
		name:        name,
		description: description,
		manager:     manager,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("no messages in input"),
			})
			return
		}
		utterance := input.Messages[len(input.Messages)-1].Content
		if input.EnableStreaming {
			turn, err := a.manager.StepStream(ctx, utterance)
			if err != nil {
				gen.Send(&adk.AgentEvent{Err: fmt.Errorf("turn failed: %w", err)})
				return
			}
			stream := schema.StreamReaderWithConvert(turn.ReplyStream, func(chunk string) (*schema.Message, error) {
				return schema.AssistantMessage(chunk, nil), nil
			})
			gen.Send(&adk.AgentEvent{
				AgentName: a.name,
				Output: &adk.AgentOutput{
					MessageOutput: &adk.MessageVariant{
						IsStreaming:   true,
						MessageStream: stream,
						Role:          schema.Assistant,
					},
				},
			})
			return
		}
		turn, err := a.manager.Step(ctx, utterance)
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("turn failed: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message:     schema.AssistantMessage(turn.Reply, nil),
					Role:        schema.Assistant,
				},
			},
		})
	}()
	return iter
}
