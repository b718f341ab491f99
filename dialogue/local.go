package dialogue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/types"
)

var elicitQuestions = map[types.Slot]string{
	types.SlotGenres:    "What genre of movie are you in the mood for?",
	types.SlotYear:      "Do you prefer movies from a particular year or decade?",
	types.SlotKeywords:  "What should the movie be about?",
	types.SlotDirectors: "Is there a director whose movies you like?",
	types.SlotActors:    "Any actors you would like to see?",
	types.SlotTitle:     "Is there a movie you have in mind?",
}

var recommendIntros = []string{
	"How about %s?",
	"I would recommend %s.",
	"You might like %s.",
}

// LocalDialogueGenerator phrases acts with fixed templates.
type LocalDialogueGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocalDialogueGenerator uses rng to vary phrasing; nil always picks the
// first template.
func NewLocalDialogueGenerator(rng *rand.Rand) *LocalDialogueGenerator {
	return &LocalDialogueGenerator{rng: rng}
}

func (g *LocalDialogueGenerator) pick(templates []string) string {
	if g.rng == nil || len(templates) == 1 {
		return templates[0]
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return templates[g.rng.IntN(len(templates))]
}

func (g *LocalDialogueGenerator) GenerateDialogue(ctx context.Context, req *Request) (*Reply, error) {
	parts := make([]string, 0, len(req.Acts))
	for _, a := range req.Acts {
		if text := g.phrase(a, req); text != "" {
			parts = append(parts, text)
		}
	}
	return &Reply{Text: strings.Join(parts, " "), Options: BuildOptions(req.Acts, req.State)}, nil
}

func (g *LocalDialogueGenerator) GenerateDialogueStream(ctx context.Context, req *Request) (*schema.StreamReader[string], types.DialogueOptions, error) {
	reply, err := g.GenerateDialogue(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return schema.StreamReaderFromArray([]string{reply.Text}), reply.Options, nil
}

func label(ont *ontology.Ontology, slot types.Slot) string {
	if ont == nil {
		return string(slot)
	}
	return ont.Label(slot)
}

func (g *LocalDialogueGenerator) phrase(a types.DialogueAct, req *Request) string {
	switch a.Intent {
	case types.IntentWelcome:
		return "Hi there. I can recommend movies. Tell me what kind of movie you feel like watching."
	case types.IntentElicit:
		return elicitText(a, req.Ontology)
	case types.IntentCountResults:
		c, _ := a.First(types.SlotCount)
		if c.Value.Text() == "0" {
			return "I could not find movies matching all of that yet."
		}
		return fmt.Sprintf("There are %s movies that match your preferences.", c.Value.Text())
	case types.IntentRecommend:
		c, _ := a.First(types.SlotTitle)
		text := fmt.Sprintf(g.pick(recommendIntros), quote(c.Value.Text()))
		if req.State != nil && req.State.ItemInFocus != nil && strings.EqualFold(req.State.ItemInFocus.Title(), c.Value.Text()) {
			text += " " + describe(*req.State.ItemInFocus)
		}
		return text
	case types.IntentNoResults:
		return "Sorry, I could not find any more movies matching your preferences. You can change them or start over."
	case types.IntentInform:
		return informText(a, req)
	case types.IntentContinueRecommendation:
		c, _ := a.First(types.SlotTitle)
		return fmt.Sprintf("Great choice! Would you like to see movies similar to %s?", quote(c.Value.Text()))
	case types.IntentRestart:
		return "Let's start over."
	case types.IntentCantHelp:
		return "Sorry, I can't help you with that."
	case types.IntentBye:
		return "Goodbye. Enjoy your movie!"
	}
	return ""
}

func quote(title string) string { return "\"" + title + "\"" }

func elicitText(a types.DialogueAct, ont *ontology.Ontology) string {
	if len(a.Constraints) == 0 {
		return ""
	}
	slot := a.Constraints[0].Slot
	question, ok := elicitQuestions[slot]
	if !ok {
		question = fmt.Sprintf("Which %s do you prefer?", label(ont, slot))
	}
	var examples []string
	for _, c := range a.Constraints[1:] {
		if c.Op == types.OpIn && !c.Value.IsEmpty() {
			examples = append(examples, c.Value.Text())
		}
	}
	if len(examples) > 0 {
		question += " For example, " + strings.Join(examples, " or ") + "."
	}
	return question
}

// describe summarises an item in one sentence.
func describe(item types.Item) string {
	var facts []string
	if y := item.Get(types.SlotYear); y != "" {
		facts = append(facts, "from "+y)
	}
	if genres := item.List(types.SlotGenres); len(genres) > 0 {
		facts = append(facts, "a "+strings.ToLower(strings.Join(genres, " and "))+" movie")
	}
	if r := item.Get(types.SlotRating); r != "" {
		facts = append(facts, "rated "+r)
	}
	if len(facts) == 0 {
		return ""
	}
	return "It is " + strings.Join(facts, ", ") + "."
}

func informText(a types.DialogueAct, req *Request) string {
	title := "it"
	if req.State != nil && req.State.ItemInFocus != nil {
		title = quote(req.State.ItemInFocus.Title())
	}
	var parts []string
	for _, c := range a.Constraints {
		switch {
		case c.Slot == types.SlotReason:
			parts = append(parts, "Sorry, I did not understand what you would like to know about "+title+".")
		case c.Value.IsNotFound():
			parts = append(parts, fmt.Sprintf("I don't know the %s of %s.", label(req.Ontology, c.Slot), title))
		default:
			parts = append(parts, fmt.Sprintf("The %s of %s: %s.", label(req.Ontology, c.Slot), title, c.Value.Text()))
		}
	}
	return strings.Join(parts, " ")
}

type FailbackDialogueGenerator struct {
	generators []Generator
}

func NewFailbackDialogueGenerator(generators ...Generator) *FailbackDialogueGenerator {
	return &FailbackDialogueGenerator{generators: generators}
}

func (g *FailbackDialogueGenerator) GenerateDialogue(ctx context.Context, req *Request) (*Reply, error) {
	var lastErr error
	for _, generator := range g.generators {
		reply, err := generator.GenerateDialogue(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all dialogue generators failed: %w", lastErr)
}

func (g *FailbackDialogueGenerator) GenerateDialogueStream(ctx context.Context, req *Request) (*schema.StreamReader[string], types.DialogueOptions, error) {
	var lastErr error
	for _, generator := range g.generators {
		stream, opts, err := generator.GenerateDialogueStream(ctx, req)
		if err == nil {
			return stream, opts, nil
		}
		lastErr = err
	}
	return nil, nil, fmt.Errorf("all dialogue generators failed: %w", lastErr)
}
