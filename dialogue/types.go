package dialogue

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

// Request carries what a generator needs to phrase one agent turn.
type Request struct {
	Acts          []types.DialogueAct
	State         *state.DialogueState
	Ontology      *ontology.Ontology
	LastUserInput string
}

// Reply is the text shown to the user and the replies offered for the next
// turn.
type Reply struct {
	Text    string                `json:"text"`
	Options types.DialogueOptions `json:"options,omitempty"`
}

type Generator interface {
	GenerateDialogue(ctx context.Context, req *Request) (*Reply, error)
	GenerateDialogueStream(ctx context.Context, req *Request) (*schema.StreamReader[string], types.DialogueOptions, error)
}
