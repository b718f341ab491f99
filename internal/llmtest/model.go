// Package llmtest provides a scripted chat model for tests that must not
// reach a live provider.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var ErrExhausted = errors.New("scripted model has no more responses")

// ScriptedModel replays canned responses in order and records every request.
type ScriptedModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	requests  [][]*schema.Message
	tools     [][]*schema.ToolInfo
}

func NewScriptedModel(responses ...*schema.Message) *ScriptedModel {
	return &ScriptedModel{responses: responses}
}

// NewFailingModel returns a model whose every call fails with err.
func NewFailingModel(err error) *ScriptedModel {
	return &ScriptedModel{err: err}
}

// ToolCall builds an assistant message calling name with JSON arguments.
func ToolCall(name, arguments string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call_0",
			Type:     "function",
			Function: schema.FunctionCall{Name: name, Arguments: arguments},
		}},
	}
}

func (m *ScriptedModel) next(input []*schema.Message, opts []model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, input)
	m.tools = append(m.tools, model.GetCommonOptions(nil, opts...).Tools)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, ErrExhausted
	}
	msg := m.responses[0]
	m.responses = m.responses[1:]
	return msg, nil
}

func (m *ScriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.next(input, opts)
}

func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg, err := m.next(input, opts)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *ScriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Requests returns the message lists the model was called with.
func (m *ScriptedModel) Requests() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.requests))
	copy(out, m.requests)
	return out
}

// Tools returns the tools offered on each call.
func (m *ScriptedModel) Tools() [][]*schema.ToolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.ToolInfo, len(m.tools))
	copy(out, m.tools)
	return out
}
