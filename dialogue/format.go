package dialogue

import (
	"fmt"
	"strings"

	"github.com/iai-group/MovieBot-sub000/types"
)

func formatUserInputSection(lastInput string) string {
	if lastInput == "" {
		return ""
	}
	return fmt.Sprintf("# User input:\n%s", lastInput)
}

func formatActsSection(acts []types.DialogueAct) string {
	table := types.FormatActs(acts)
	if table == "" {
		return ""
	}
	return "# Acts to express:\n" + strings.TrimRight(table, "\n")
}

func formatPreferencesSection(req *Request) string {
	if req.State == nil || req.Ontology == nil {
		return ""
	}
	table := types.FormatNeed(req.State.CIN, req.Ontology.Annotated())
	if table == "" {
		return "# User preferences:\n none"
	}
	return "# User preferences:\n" + strings.TrimRight(table, "\n")
}

func formatItemSection(req *Request) string {
	if req.State == nil || req.State.ItemInFocus == nil {
		return ""
	}
	slots := types.CatalogSlots()
	return "# Movie in focus:\n" + strings.TrimRight(types.FormatItem(*req.State.ItemInFocus, slots), "\n")
}

func formatOptionsSection(opts types.DialogueOptions) string {
	if len(opts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("# Replies the user can pick:\n")
	for _, opt := range opts {
		if len(opt.Texts) > 0 {
			fmt.Fprintf(&sb, "- %s\n", opt.Texts[0])
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatRequest renders a generation request as prompt text.
func FormatRequest(req *Request, draft string, opts types.DialogueOptions) string {
	var sections []string
	for _, s := range []string{
		formatUserInputSection(req.LastUserInput),
		formatActsSection(req.Acts),
		formatPreferencesSection(req),
		formatItemSection(req),
		formatOptionsSection(opts),
	} {
		if s != "" {
			sections = append(sections, s)
		}
	}
	if draft != "" {
		sections = append(sections, "# Draft reply:\n"+draft)
	}
	return strings.Join(sections, "\n\n")
}
