package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/redline"
	"redpen/internal/rules"
)

// Artifacts lists the files a run bundle contains.
type Artifacts struct {
	OriginalDocx string `json:"original_docx"`
	CleanDocx    string `json:"clean_docx"`
	RedlineDocx  string `json:"redline_docx,omitempty"`
}

// Changelog is the reviewer-facing run record, written as both JSON and
// plain text.
type Changelog struct {
	TimestampUTC string                `json:"timestamp_utc"`
	RunID        string                `json:"run_id,omitempty"`
	Artifacts    Artifacts             `json:"artifacts"`
	Checklist    rules.ChecklistResult `json:"checklist"`
	Redline      redline.Result        `json:"redline_engine"`
	Stats        map[string]int        `json:"stats"`
	Findings     []ir.Finding          `json:"findings"`
	EditOps      []editop.EditOp       `json:"editops"`
}

// WriteJSON writes the changelog as indented JSON.
func (c *Changelog) WriteJSON(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal changelog: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

// WriteText writes the human-readable rendering.
func (c *Changelog) WriteText(path string) error {
	return os.WriteFile(path, []byte(c.RenderText()), 0644)
}

const (
	maxFindingsShown = 60
	maxOpsShown      = 50
)

// RenderText renders the changelog for reading in a terminal or email.
func (c *Changelog) RenderText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review Bundle %s\n\n", c.TimestampUTC)

	b.WriteString("Artifacts\n")
	fmt.Fprintf(&b, "- Original: %s\n", c.Artifacts.OriginalDocx)
	fmt.Fprintf(&b, "- Clean:    %s\n", c.Artifacts.CleanDocx)
	redlinePath := c.Artifacts.RedlineDocx
	if redlinePath == "" {
		redlinePath = "[not generated]"
	}
	fmt.Fprintf(&b, "- Redline:  %s\n\n", redlinePath)

	b.WriteString("Capability Checklist\n")
	fmt.Fprintf(&b, "- OK: %v\n", c.Checklist.OK)
	if len(c.Checklist.Missing) > 0 {
		fmt.Fprintf(&b, "- Missing: %s\n", strings.Join(c.Checklist.Missing, ", "))
	}
	for _, n := range c.Checklist.Notes {
		fmt.Fprintf(&b, "- Note: %s\n", n)
	}
	b.WriteString("\n")

	b.WriteString("Redline Generation\n")
	fmt.Fprintf(&b, "- Backend: %s\n", c.Redline.Backend)
	fmt.Fprintf(&b, "- Status:  %s\n", c.Redline.Status)
	fmt.Fprintf(&b, "- Notes:   %s\n\n", c.Redline.Message)

	if len(c.Stats) > 0 {
		b.WriteString("Stats\n")
		for _, k := range sortedKeys(c.Stats) {
			fmt.Fprintf(&b, "- %s: %d\n", k, c.Stats[k])
		}
		b.WriteString("\n")
	}

	if len(c.Findings) > 0 {
		b.WriteString("Findings\n")
		for i, f := range c.Findings {
			if i == maxFindingsShown {
				fmt.Fprintf(&b, "... plus %d more.\n", len(c.Findings)-maxFindingsShown)
				break
			}
			fmt.Fprintf(&b, "- [%s] %s %s: %s\n", strings.ToUpper(f.Severity), f.Category, f.RuleID, f.Message)
		}
		b.WriteString("\n")
	}

	if len(c.EditOps) > 0 {
		fmt.Fprintf(&b, "EditOps (first %d)\n", maxOpsShown)
		for i, op := range c.EditOps {
			if i == maxOpsShown {
				break
			}
			fmt.Fprintf(&b, "- %s: %s (%s) @ anchor=%s\n", op.Status, op.RuleID, op.Intent, op.Target.Anchor)
		}
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
