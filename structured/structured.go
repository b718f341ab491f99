package structured

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

var ErrNoToolCall = errors.New("no tool call in model response")

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

// Validator rejects a decoded tool call that is well-formed JSON but
// meaningless for the caller.
type Validator[TOutput any] func(output *TOutput) error

// Chain forces a tool-calling model to answer with a single call to a tool
// whose parameters are the JSON schema of TOutput.
type Chain[TInput, TOutput any] struct {
	promptBuilder PromptBuilder[TInput]
	chatModel     model.ToolCallingChatModel
	toolInfo      *schema.ToolInfo
	validate      Validator[TOutput]
}

type ChainOption[TOutput any] func(*chainOptions[TOutput])

type chainOptions[TOutput any] struct {
	validate Validator[TOutput]
}

func WithValidator[TOutput any](v Validator[TOutput]) ChainOption[TOutput] {
	return func(o *chainOptions[TOutput]) { o.validate = v }
}

func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	promptBuilder PromptBuilder[TInput],
	toolName string,
	toolDesc string,
	opts ...ChainOption[TOutput],
) (*Chain[TInput, TOutput], error) {
	if chatModel == nil {
		return nil, errors.New("chat model is nil")
	}
	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	var o chainOptions[TOutput]
	for _, opt := range opts {
		opt(&o)
	}
	return &Chain[TInput, TOutput]{
		promptBuilder: promptBuilder,
		chatModel:     chatModel,
		toolInfo:      toolInfo,
		validate:      o.validate,
	}, nil
}

func (s *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := s.promptBuilder(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}

	response, err := s.chatModel.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{s.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, s.toolInfo.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	return s.decode(response)
}

func (s *Chain[TInput, TOutput]) decode(response *schema.Message) (*TOutput, error) {
	if response == nil || len(response.ToolCalls) == 0 {
		content := ""
		if response != nil {
			content = response.Content
		}
		return nil, fmt.Errorf("%w: %s", ErrNoToolCall, content)
	}
	call := response.ToolCalls[0]
	if call.Function.Name != "" && call.Function.Name != s.toolInfo.Name {
		return nil, fmt.Errorf("unexpected tool %q, want %q", call.Function.Name, s.toolInfo.Name)
	}

	var result TOutput
	if err := sonic.UnmarshalString(call.Function.Arguments, &result); err != nil {
		return nil, fmt.Errorf("parse ToolCall arguments failed: %w", err)
	}
	if s.validate != nil {
		if err := s.validate(&result); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", s.toolInfo.Name, err)
		}
	}
	return &result, nil
}

func (s *Chain[TInput, TOutput]) ToolInfo() *schema.ToolInfo {
	return s.toolInfo
}
