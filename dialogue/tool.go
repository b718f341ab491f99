package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iai-group/MovieBot-sub000/types"
)

// ToolBasedDialogueGenerator drafts the reply with templates and lets a chat
// model rewrite it. The offered options always come from the templates so
// the resolver can still match them.
type ToolBasedDialogueGenerator struct {
	Lang                 string
	systemPrompt         string
	systemPromptTemplate string
	chatModel            model.ToolCallingChatModel
	drafter              *LocalDialogueGenerator
}

// DefaultDialogueSystemPromptTemplate is the default system prompt template used by
// ToolBasedDialogueGenerator. The template may contain a single "%s" placeholder for the language.
const DefaultDialogueSystemPromptTemplate = `You are a friendly movie recommendation assistant chatting with a user.

Rewrite the draft reply so it sounds natural while expressing exactly the listed acts:
- Keep every movie title, name, number and example value from the draft unchanged.
- Do not recommend, invent or describe movies that are not in the draft or the movie in focus.
- When the draft asks a question, keep asking it. When it lists examples, keep them.
- Keep it short: one to three sentences, no lists or bullet points.
- Reply in %s.
`

type dialogueGeneratorOptions struct {
	lang                 string
	systemPrompt         string
	systemPromptTemplate string
	drafter              *LocalDialogueGenerator
}

type GeneratorOption func(*dialogueGeneratorOptions)

// WithDialogueLang sets the language used by the default system prompt template.
func WithDialogueLang(lang string) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.lang = lang
	}
}

// WithDialogueSystemPrompt overrides the system prompt used by ToolBasedDialogueGenerator.
func WithDialogueSystemPrompt(systemPrompt string) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.systemPrompt = systemPrompt
	}
}

// WithDialogueSystemPromptTemplate overrides the system prompt template used by ToolBasedDialogueGenerator.
// If the template contains "%s", it will be formatted with the language.
func WithDialogueSystemPromptTemplate(systemPromptTemplate string) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.systemPromptTemplate = systemPromptTemplate
	}
}

// WithDrafter sets the template generator that writes the draft.
func WithDrafter(drafter *LocalDialogueGenerator) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.drafter = drafter
	}
}

func NewToolBasedDialogueGenerator(chatModel model.ToolCallingChatModel, opts ...GeneratorOption) *ToolBasedDialogueGenerator {
	options := dialogueGeneratorOptions{
		lang:                 "English",
		systemPromptTemplate: DefaultDialogueSystemPromptTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.lang == "" {
		options.lang = "English"
	}
	if options.drafter == nil {
		options.drafter = NewLocalDialogueGenerator(nil)
	}
	return &ToolBasedDialogueGenerator{
		Lang:                 options.lang,
		systemPrompt:         options.systemPrompt,
		systemPromptTemplate: options.systemPromptTemplate,
		chatModel:            chatModel,
		drafter:              options.drafter,
	}
}

func (g *ToolBasedDialogueGenerator) GenerateDialogue(ctx context.Context, req *Request) (*Reply, error) {
	draft, err := g.drafter.GenerateDialogue(ctx, req)
	if err != nil {
		return nil, err
	}
	messages := g.buildDialoguePrompt(req, draft)

	response, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}
	text := strings.TrimSpace(response.Content)
	if text == "" {
		return nil, errors.New("LLM returned an empty reply")
	}
	return &Reply{Text: text, Options: draft.Options}, nil
}

func (g *ToolBasedDialogueGenerator) GenerateDialogueStream(ctx context.Context, req *Request) (*schema.StreamReader[string], types.DialogueOptions, error) {
	draft, err := g.drafter.GenerateDialogue(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	messages := g.buildDialoguePrompt(req, draft)

	stream, err := g.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, nil, fmt.Errorf("LLM stream call failed: %w", err)
	}
	textStream := schema.StreamReaderWithConvert[*schema.Message, string](stream, func(message *schema.Message) (string, error) {
		return message.Content, nil
	})
	return textStream, draft.Options, nil
}

func (g *ToolBasedDialogueGenerator) buildDialoguePrompt(req *Request, draft *Reply) []*schema.Message {
	systemPrompt := g.systemPrompt
	if systemPrompt == "" {
		tpl := g.systemPromptTemplate
		if tpl == "" {
			tpl = DefaultDialogueSystemPromptTemplate
		}
		if strings.Contains(tpl, "%s") {
			systemPrompt = fmt.Sprintf(tpl, g.Lang)
		} else {
			systemPrompt = tpl
		}
	}

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(FormatRequest(req, draft.Text, draft.Options)),
	}
}
