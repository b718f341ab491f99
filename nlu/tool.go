package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/structured"
	"github.com/iai-group/MovieBot-sub000/types"
)

const (
	parseActsToolName        = "parse_dialogue_acts"
	parseActsToolDescription = "Convert the user's latest message in a movie recommendation chat into dialogue acts."
)

// DefaultParseActsSystemPromptTemplate is the default system prompt used by
// ToolBasedResolver. The template takes the tool name as its single "%s".
const DefaultParseActsSystemPromptTemplate = `
You are the language understanding module of a movie recommendation assistant.

Read the assistant's previous acts, the user's current preferences and the user's latest message, then describe the message as dialogue acts.

Intents:
- REVEAL: the user states a preference. Add one constraint per value.
- REMOVE_PREFERENCE: the user withdraws a preference. An empty value clears the slot.
- INQUIRE: the user asks about the recommended movie. Add one constraint per asked slot with an empty value.
- ACCEPT / REJECT: the user likes or dislikes the recommended movie. For REJECT set preference to -1 when they dislike it and 0 when they have already watched it.
- CONTINUE_RECOMMENDATION: the user wants movies similar to the recommended one.
- RESTART, BYE, HI, ACKNOWLEDGE, DENY: conversation management.
- UNK: nothing above applies.

Use operator NE for values the user does not want. Use "<dontcare>" as the value when the user has no preference for the slot the assistant asked about. Years use EQ with a four digit year, or BETWEEN with "START AND END" where END is exclusive.

Call the '%s' tool with the result.
`

type PromptBuilder func(systemPrompt string) structured.PromptBuilder[*ResolveRequest]

// ResolveRequest is the context handed to the model.
type ResolveRequest struct {
	Utterance string
	Options   types.DialogueOptions
	State     *state.DialogueState
	Ontology  *ontology.Ontology
}

type toolOptions struct {
	systemPromptTemplate string
	promptBuilder        PromptBuilder
}

type ToolOption func(*toolOptions)

func WithSystemPromptTemplate(template string) ToolOption {
	return func(o *toolOptions) { o.systemPromptTemplate = template }
}

func WithPromptBuilder(builder PromptBuilder) ToolOption {
	return func(o *toolOptions) { o.promptBuilder = builder }
}

func defaultPromptBuilder(systemPrompt string) structured.PromptBuilder[*ResolveRequest] {
	return func(ctx context.Context, req *ResolveRequest) ([]*schema.Message, error) {
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(FormatResolveRequest(req)),
		}, nil
	}
}

// FormatResolveRequest renders the request as markdown for the model.
func FormatResolveRequest(req *ResolveRequest) string {
	var sb strings.Builder
	sb.WriteString("## Slots\n\n")
	for _, slot := range req.Ontology.Annotated() {
		sb.WriteString("- ")
		sb.WriteString(string(slot))
		if req.Ontology.Multi(slot) {
			sb.WriteString(" (several values allowed)")
		}
		sb.WriteString("\n")
	}
	if req.State != nil {
		if acts := types.FormatActs(req.State.LastAgentActs); acts != "" {
			sb.WriteString("\n## Assistant's previous acts\n\n")
			sb.WriteString(acts)
		}
		if need := types.FormatNeed(req.State.CIN, req.Ontology.Annotated()); need != "" {
			sb.WriteString("\n## Current preferences\n\n")
			sb.WriteString(need)
		}
		if req.State.ItemInFocus != nil {
			sb.WriteString("\n## Recommended movie\n\n")
			sb.WriteString(req.State.ItemInFocus.Title())
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n## User message\n\n")
	sb.WriteString(req.Utterance)
	sb.WriteString("\n")
	return sb.String()
}

type parsedConstraint struct {
	Slot     string `json:"slot" jsonschema:"required,description=Slot name from the slot list"`
	Operator string `json:"operator" jsonschema:"required,enum=EQ,enum=NE,enum=LT,enum=LE,enum=GT,enum=GE,enum=BETWEEN,enum=NOT,enum=IN"`
	Value    string `json:"value" jsonschema:"description=Literal value or <dontcare>; empty for INQUIRE"`
}

type parsedAct struct {
	Intent      string             `json:"intent" jsonschema:"required,enum=REVEAL,enum=INQUIRE,enum=REMOVE_PREFERENCE,enum=REJECT,enum=ACCEPT,enum=CONTINUE_RECOMMENDATION,enum=RESTART,enum=BYE,enum=ACKNOWLEDGE,enum=HI,enum=DENY,enum=UNK"`
	Constraints []parsedConstraint `json:"constraints,omitempty"`
	Preference  float64            `json:"preference,omitempty" jsonschema:"description=For REJECT and ACCEPT, between -1 and 1"`
}

type parseActsOutput struct {
	Acts []parsedAct `json:"acts" jsonschema:"required,description=Dialogue acts in the order they occur in the message"`
}

// ToolBasedResolver asks a chat model to produce the dialogue acts.
type ToolBasedResolver struct {
	ont   *ontology.Ontology
	chain *structured.Chain[*ResolveRequest, parseActsOutput]
}

func NewToolBasedResolver(chatModel model.ToolCallingChatModel, ont *ontology.Ontology, opts ...ToolOption) (*ToolBasedResolver, error) {
	o := toolOptions{
		systemPromptTemplate: DefaultParseActsSystemPromptTemplate,
		promptBuilder:        defaultPromptBuilder,
	}
	for _, opt := range opts {
		opt(&o)
	}
	chain, err := structured.NewChain[*ResolveRequest, parseActsOutput](
		chatModel,
		o.promptBuilder(fmt.Sprintf(o.systemPromptTemplate, parseActsToolName)),
		parseActsToolName,
		parseActsToolDescription,
		structured.WithValidator(func(out *parseActsOutput) error {
			if len(out.Acts) == 0 {
				return errors.New("no acts")
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedResolver{ont: ont, chain: chain}, nil
}

func (r *ToolBasedResolver) GenerateDact(ctx context.Context, utterance string, options types.DialogueOptions, st *state.DialogueState) ([]types.DialogueAct, error) {
	out, err := r.chain.Invoke(ctx, &ResolveRequest{Utterance: utterance, Options: options, State: st, Ontology: r.ont})
	if err != nil {
		return nil, err
	}
	acts := make([]types.DialogueAct, 0, len(out.Acts))
	for _, pa := range out.Acts {
		a, err := r.convert(pa)
		if err != nil {
			return nil, fmt.Errorf("%s returned an invalid act: %w", parseActsToolName, err)
		}
		if a.Intent == types.IntentContinueRecommendation && len(a.Constraints) == 0 && st != nil {
			a.Constraints = SimilarConstraints(st.ItemInFocus)
		}
		acts = append(acts, a)
	}
	return acts, nil
}

func (r *ToolBasedResolver) convert(pa parsedAct) (types.DialogueAct, error) {
	var cs []types.Constraint
	for _, pc := range pa.Constraints {
		slot, err := types.ParseSlot(pc.Slot)
		if err != nil {
			return types.DialogueAct{}, err
		}
		if !slot.IsMeta() && !r.ont.Declared(slot) {
			return types.DialogueAct{}, fmt.Errorf("%w: %q is not declared", types.ErrUnknownSlot, slot)
		}
		op, err := types.ParseOperator(pc.Operator)
		if err != nil {
			return types.DialogueAct{}, err
		}
		c, err := types.NewConstraint(slot, op, types.ParseValue(pc.Value))
		if err != nil {
			return types.DialogueAct{}, err
		}
		cs = append(cs, c)
	}
	a, err := types.NewUserAct(types.Intent(pa.Intent), cs...)
	if err != nil {
		return types.DialogueAct{}, err
	}
	return a.WithPreference(pa.Preference), nil
}
