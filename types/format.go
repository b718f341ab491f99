package types

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatNeed renders the filled slots of need as a markdown table, in the
// order given by slots.
func FormatNeed(need Need, slots []Slot) string {
	var rows [][]string
	for _, slot := range slots {
		values := need[slot]
		if len(values) == 0 {
			continue
		}
		texts := make([]string, len(values))
		for i, v := range values {
			texts[i] = v.String()
		}
		rows = append(rows, []string{string(slot), strings.Join(texts, ", ")})
	}
	if len(rows) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Slot", "Values")
	for _, row := range rows {
		_ = table.Append(row[0], row[1])
	}
	_ = table.Render()
	return buf.String()
}

// FormatActs renders dialogue acts one constraint per row.
func FormatActs(acts []DialogueAct) string {
	if len(acts) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Intent", "Slot", "Operator", "Value")
	for _, act := range acts {
		if len(act.Constraints) == 0 {
			_ = table.Append(string(act.Intent), "", "", "")
			continue
		}
		for _, c := range act.Constraints {
			_ = table.Append(string(act.Intent), string(c.Slot), string(c.Op), c.Value.String())
		}
	}
	_ = table.Render()
	return buf.String()
}

// FormatItem renders the non-empty attributes of an item.
func FormatItem(item Item, slots []Slot) string {
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Attribute", "Value")
	for _, slot := range slots {
		if v := item.Get(slot); v != "" {
			_ = table.Append(string(slot), v)
		}
	}
	if item.Votes > 0 {
		_ = table.Append("votes", fmt.Sprint(item.Votes))
	}
	_ = table.Render()
	return buf.String()
}
