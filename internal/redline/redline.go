// Package redline produces a tracked-changes comparison of the original and
// edited documents. A real compare backend needs a Word-compatible engine; on
// machines without one the fallback writes a unified text diff so the bundle
// always carries a change record.
package redline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"redpen/internal/docx"
	"redpen/internal/ir"
)

// Result reports which backend produced the redline and whether it worked.
// Status is "ok" or "skipped"; redline creation never fails a run.
type Result struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// Options selects and configures the compare backends.
type Options struct {
	// PreferBackend forces a single backend instead of the default chain.
	PreferBackend string
	// CompareBinary is an external tool invoked as
	// `<bin> <original> <revised> <output> <author>`.
	CompareBinary string
	Author        string
	Timeout       time.Duration
}

// Create builds the redline at redlinePath. Backends are tried in order:
// the external compare tool, then the text-diff fallback.
func Create(ctx context.Context, originalPath, cleanPath, redlinePath string, opts Options) Result {
	if opts.Author == "" {
		opts.Author = "Editorial Engine"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}

	backends := []string{"compare_tool", "text_diff"}
	if opts.PreferBackend != "" {
		backends = []string{strings.ToLower(strings.TrimSpace(opts.PreferBackend))}
	}

	var lastErr error
	for _, be := range backends {
		var res Result
		var err error
		switch be {
		case "compare_tool":
			res, err = compareTool(ctx, originalPath, cleanPath, redlinePath, opts)
		case "text_diff":
			res, err = textDiff(originalPath, cleanPath, redlinePath)
		default:
			err = fmt.Errorf("unknown compare backend: %s", be)
		}
		if err == nil {
			return res
		}
		lastErr = err
	}
	msg := "No compare backend available."
	if lastErr != nil {
		msg += " Last error: " + lastErr.Error()
	}
	return Result{Backend: "none", Status: "skipped", Message: msg}
}

func compareTool(ctx context.Context, originalPath, cleanPath, redlinePath string, opts Options) (Result, error) {
	bin := opts.CompareBinary
	if bin == "" {
		path, err := exec.LookPath("docx-compare")
		if err != nil {
			return Result{}, fmt.Errorf("no compare tool configured")
		}
		bin = path
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, originalPath, cleanPath, redlinePath, opts.Author)
	if out, err := cmd.CombinedOutput(); err != nil {
		return Result{}, fmt.Errorf("compare tool failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}
	return Result{
		Backend: "compare_tool",
		Status:  "ok",
		Message: "Redline created via external compare tool.",
		Path:    redlinePath,
	}, nil
}

// textDiff writes a unified diff of the extracted block text next to where
// the tracked-changes document would have gone.
func textDiff(originalPath, cleanPath, redlinePath string) (Result, error) {
	origIR, _, err := docx.Extract(originalPath)
	if err != nil {
		return Result{}, err
	}
	cleanIR, _, err := docx.Extract(cleanPath)
	if err != nil {
		return Result{}, err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        blockLines(origIR),
		B:        blockLines(cleanIR),
		FromFile: filepath.Base(originalPath),
		ToFile:   filepath.Base(cleanPath),
		Context:  2,
	})
	if err != nil {
		return Result{}, err
	}
	if diff == "" {
		diff = "(no textual differences)\n"
	}

	diffPath := strings.TrimSuffix(redlinePath, filepath.Ext(redlinePath)) + ".diff.txt"
	if err := os.WriteFile(diffPath, []byte(diff), 0o644); err != nil {
		return Result{}, err
	}
	return Result{
		Backend: "text_diff",
		Status:  "ok",
		Message: "Tracked-changes backend unavailable; wrote unified text diff instead.",
		Path:    diffPath,
	}, nil
}

func blockLines(doc *ir.DocumentIR) []string {
	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		lines = append(lines, b.Text+"\n")
	}
	return lines
}
