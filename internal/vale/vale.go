// Package vale shells out to the vale prose linter and converts its alerts
// into findings and span-level edit proposals.
package vale

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"redpen/internal/editop"
	"redpen/internal/ir"
	"redpen/internal/lint"
)

// Config locates and configures the external binary.
type Config struct {
	Binary     string
	ConfigPath string
	Timeout    time.Duration
}

// DefaultTimeout bounds a single lint invocation.
const DefaultTimeout = 60 * time.Second

// Alert is one vale JSON alert.
type Alert struct {
	Check    string `json:"Check"`
	Line     int    `json:"Line"`
	Severity string `json:"Severity"`
	Message  string `json:"Message"`
	Match    string `json:"Match"`
	Action   struct {
		Name   string   `json:"Name"`
		Params []string `json:"Params"`
	} `json:"Action"`
}

// Runner wraps one resolved vale installation.
type Runner struct {
	cfg Config
}

// New resolves the binary and returns a runner, or an error when vale is not
// installed anywhere we know to look.
func New(cfg Config) (*Runner, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Binary == "" {
		path, err := exec.LookPath("vale")
		if err != nil {
			for _, candidate := range []string{"/usr/local/bin/vale", "/opt/homebrew/bin/vale"} {
				if _, statErr := os.Stat(candidate); statErr == nil {
					path = candidate
					break
				}
			}
		}
		if path == "" {
			return nil, fmt.Errorf("vale binary not found in PATH")
		}
		cfg.Binary = path
	}
	return &Runner{cfg: cfg}, nil
}

// Run lints every block of the document. The document is rendered one block
// per line into a temp file so vale's line numbers map directly to block
// indices.
func (r *Runner) Run(ctx context.Context, doc *ir.DocumentIR) ([]ir.Finding, []editop.EditOp, error) {
	lines := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		lines[i] = strings.ReplaceAll(b.Text, "\n", " ")
	}

	tmp, err := os.CreateTemp("", "redpen-vale-*.txt")
	if err != nil {
		return nil, nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(strings.Join(lines, "\n")); err != nil {
		tmp.Close()
		return nil, nil, err
	}
	tmp.Close()

	alerts, err := r.lintFile(ctx, tmp.Name())
	if err != nil {
		return nil, nil, err
	}

	var findings []ir.Finding
	var ops []editop.EditOp
	for _, a := range alerts {
		bi := a.Line - 1
		if bi < 0 || bi >= len(doc.Blocks) {
			continue
		}
		block := &doc.Blocks[bi]
		ref := block.Ref
		findings = append(findings, ir.Finding{
			RuleID:   "vale." + a.Check,
			Severity: mapSeverity(a.Severity),
			Category: lint.CategoryProse,
			Message:  a.Message,
			Ref:      &ref,
			Before:   a.Match,
			RiskTier: riskFor(a.Severity),
			Details:  map[string]string{"anchor": block.Anchor, "check": a.Check},
		})
		if op, ok := r.proposeOp(block, a); ok {
			ops = append(ops, op)
		}
	}
	return findings, ops, nil
}

// IssuesFor lints a single text fragment and returns the alert messages.
// Used by the rewrite validator to judge whether a rewrite reduced the
// complaint count.
func (r *Runner) IssuesFor(ctx context.Context, text string) ([]Alert, error) {
	tmp, err := os.CreateTemp("", "redpen-vale-*.txt")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()
	return r.lintFile(ctx, tmp.Name())
}

func (r *Runner) lintFile(ctx context.Context, path string) ([]Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := []string{"--output=JSON", "--no-exit"}
	if r.cfg.ConfigPath != "" {
		args = append(args, "--config", r.cfg.ConfigPath)
	}
	args = append(args, path)

	out, err := exec.CommandContext(ctx, r.cfg.Binary, args...).Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("vale timed out after %s", r.cfg.Timeout)
		}
		// vale exits non-zero on lint errors even with --no-exit on some
		// versions. Parse whatever it printed before giving up.
		if len(out) == 0 {
			return nil, fmt.Errorf("vale failed: %w", err)
		}
	}

	var byFile map[string][]Alert
	if err := json.Unmarshal(out, &byFile); err != nil {
		return nil, fmt.Errorf("failed to parse vale output: %w", err)
	}
	var alerts []Alert
	for _, file := range byFile {
		alerts = append(alerts, file...)
	}
	return alerts, nil
}

var quotedTailRe = regexp.MustCompile(`'([^']+)'\.?\s*$`)

// proposeOp turns an alert into a replace_span op when vale supplies a
// concrete replacement, either via the suggest action or as a quoted tail in
// the message ("Consider using 'X'").
func (r *Runner) proposeOp(block *ir.TextBlock, a Alert) (editop.EditOp, bool) {
	if a.Match == "" {
		return editop.EditOp{}, false
	}
	replacement := ""
	if a.Action.Name == "replace" && len(a.Action.Params) > 0 {
		replacement = a.Action.Params[0]
	} else if m := quotedTailRe.FindStringSubmatch(a.Message); m != nil {
		replacement = m[1]
	}
	if replacement == "" || replacement == a.Match {
		return editop.EditOp{}, false
	}
	start := strings.Index(block.Text, a.Match)
	if start < 0 {
		log.Printf("vale match %q not found in block %s", a.Match, block.Anchor)
		return editop.EditOp{}, false
	}
	end := start + len(a.Match)
	return editop.EditOp{
		ID: editop.StableID("vale", a.Check, block.Anchor, a.Match, replacement),
		Op: editop.ReplaceSpan,
		Target: editop.SpanTarget(block.Anchor, block.Ref.DocIndex,
			block.Ref.BlockType, start, end, 1),
		Intent:         "prose_style",
		Engine:         editop.EngineVale,
		RuleID:         "vale." + a.Check,
		Rationale:      a.Message,
		Before:         a.Match,
		After:          replacement,
		Confidence:     0.9,
		RequiresReview: a.Severity != "error",
		RiskTier:       riskFor(a.Severity),
		Status:         editop.Proposed,
	}, true
}

func mapSeverity(s string) string {
	switch strings.ToLower(s) {
	case "error":
		return ir.SeverityCritical
	case "warning":
		return ir.SeverityWarning
	default:
		return ir.SeverityInfo
	}
}

func riskFor(severity string) string {
	switch strings.ToLower(severity) {
	case "error":
		return ir.RiskHigh
	case "warning":
		return ir.RiskMedium
	default:
		return ir.RiskLow
	}
}

// WriteDefaultConfig materializes a minimal vale configuration next to the
// styles directory when the caller did not supply one.
func WriteDefaultConfig(dir string) (string, error) {
	path := filepath.Join(dir, ".vale.ini")
	content := "StylesPath = styles\nMinAlertLevel = suggestion\n\n[*]\nBasedOnStyles = Vale, write-good\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
