// Package pipeline drives a full editorial run: extract, lint, propose,
// apply, verify, emit, and report, in the bundle layout reviewers expect.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"redpen/internal/apply"
	"redpen/internal/docx"
	"redpen/internal/editop"
	"redpen/internal/history"
	"redpen/internal/holistic"
	"redpen/internal/ir"
	"redpen/internal/lint"
	"redpen/internal/llm"
	"redpen/internal/propose"
	"redpen/internal/redline"
	"redpen/internal/report"
	"redpen/internal/rules"
	"redpen/internal/vale"
	"redpen/internal/verify"
)

// Modes supported by Run.
const (
	ModeSafe     = "safe"
	ModeRewrite  = "rewrite"
	ModeHolistic = "holistic"
)

// Options configures one run.
type Options struct {
	InputPath string
	OutDir    string
	Mode      string

	StyleRulesPath     string
	ProseRulesPath     string
	ProtectedTermsPath string

	UseLLM bool
	LLM    llm.Options

	UseVale        bool
	ValeBinary     string
	ValeConfigPath string

	ChunkStrategy string
	Concurrency   int
	AutoAccept    bool
	FeedbackRetry bool

	Author        string
	PreferBackend string
	CompareBinary string

	HistoryDB string
}

// RunResult points at the bundle and summarizes the outcome.
type RunResult struct {
	RunID        string
	BundleDir    string
	CleanPath    string
	RedlinePath  string
	Changelog    *report.Changelog
	ReviewNeeded bool
}

// Run executes the configured pipeline mode and writes the review bundle.
func Run(ctx context.Context, opts Options) (*RunResult, error) {
	switch opts.Mode {
	case ModeSafe, ModeRewrite, ModeHolistic:
	case "":
		opts.Mode = ModeSafe
	default:
		return nil, fmt.Errorf("unknown mode: %s", opts.Mode)
	}

	started := time.Now().UTC()
	runID := history.NewRunID()

	bundle, paths, err := makeBundle(opts.InputPath, opts.OutDir, started)
	if err != nil {
		return nil, err
	}
	rep := report.NewPipelineReport(opts.Mode, bundle)
	rep.RunID = runID

	stylePack, prosePack, protectedTerms, checklist, err := loadRules(opts, rep)
	if err != nil {
		return nil, err
	}

	h := rep.BeginStage("extract")
	doc, preInv, err := docx.Extract(paths.original)
	rep.EndStage(h, "", map[string]float64{"blocks": float64(len(docBlocks(doc)))}, nil, err)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", paths.original, err)
	}

	var linter *vale.Runner
	if opts.UseVale {
		linter, err = vale.New(vale.Config{Binary: opts.ValeBinary, ConfigPath: opts.ValeConfigPath})
		if err != nil {
			log.Printf("vale disabled: %v", err)
			rep.AddSignal("vale_unavailable", "lint", "warning", err.Error(), 0)
			linter = nil
		}
	}

	var findings []ir.Finding
	var ops []editop.EditOp
	var holisticResult *holistic.Result

	if opts.Mode == ModeHolistic {
		holisticResult, findings, ops, err = runHolistic(ctx, doc, linter, stylePack, prosePack, protectedTerms, opts, rep)
		if err != nil {
			return nil, err
		}
		doc = holisticResult.FinalIR
	} else {
		findings, ops, err = runSurgical(ctx, doc, linter, stylePack, prosePack, protectedTerms, opts, rep)
		if err != nil {
			return nil, err
		}
	}

	h = rep.BeginStage("emit")
	err = docx.Emit(paths.original, doc, paths.clean)
	rep.EndStage(h, "", nil, nil, err)
	if err != nil {
		return nil, fmt.Errorf("emit clean docx: %w", err)
	}

	h = rep.BeginStage("verify_structure")
	_, postInv, err := docx.Extract(paths.clean)
	if err == nil {
		findings = append(findings, verify.Structure(preInv, postInv)...)
	}
	rep.EndStage(h, "", nil, nil, err)
	if err != nil {
		return nil, fmt.Errorf("re-extract clean docx: %w", err)
	}

	h = rep.BeginStage("redline")
	rl := redline.Create(ctx, paths.original, paths.clean, paths.redline, redline.Options{
		PreferBackend: opts.PreferBackend,
		CompareBinary: opts.CompareBinary,
		Author:        opts.Author,
	})
	rep.EndStage(h, rl.Status, nil, []string{rl.Message}, nil)

	for _, f := range findings {
		if f.Severity == ir.SeverityCritical {
			rep.AddSignal(f.RuleID, "verify", f.Severity, f.Message, 0)
		}
	}

	counts := editop.CountByStatus(ops)
	stats := map[string]int{
		"editops_total":    len(ops),
		"editops_applied":  counts[editop.Applied],
		"editops_rejected": counts[editop.Rejected],
		"editops_failed":   counts[editop.Failed],
		"editops_llm":      countByEngine(ops, editop.EngineLLM),
		"editops_vale":     countByEngine(ops, editop.EngineVale),
		"findings_total":   len(findings),
	}
	reviewNeeded := holisticResult != nil && holisticResult.ReviewNeeded

	changelog := &report.Changelog{
		TimestampUTC: started.Format(time.RFC3339),
		RunID:        runID,
		Artifacts: report.Artifacts{
			OriginalDocx: paths.original,
			CleanDocx:    paths.clean,
		},
		Checklist: checklist,
		Redline:   rl,
		Stats:     stats,
		Findings:  findings,
		EditOps:   ops,
	}
	if rl.Status == "ok" {
		changelog.Artifacts.RedlineDocx = rl.Path
	}
	if err := changelog.WriteJSON(paths.changelogJSON); err != nil {
		return nil, err
	}
	if err := changelog.WriteText(paths.changelogTxt); err != nil {
		return nil, err
	}
	if holisticResult != nil {
		reviewPath := filepath.Join(bundle, "review_report.md")
		if err := os.WriteFile(reviewPath, []byte(holistic.ReviewReport(holisticResult)), 0644); err != nil {
			return nil, err
		}
	}
	if err := rep.Save(filepath.Join(bundle, "pipeline_report.json")); err != nil {
		return nil, err
	}

	if opts.HistoryDB != "" {
		if err := recordHistory(ctx, opts, runID, bundle, started, stats, reviewNeeded, ops, findings); err != nil {
			log.Printf("history record failed: %v", err)
		}
	}

	return &RunResult{
		RunID:        runID,
		BundleDir:    bundle,
		CleanPath:    paths.clean,
		RedlinePath:  rl.Path,
		Changelog:    changelog,
		ReviewNeeded: reviewNeeded,
	}, nil
}

// runSurgical is the safe/rewrite flow: deterministic rules, optional linter
// proposals, optional sentence-level LLM proposals, one apply pass.
func runSurgical(ctx context.Context, doc *ir.DocumentIR, linter *vale.Runner, stylePack, prosePack *rules.Pack, protectedTerms []string, opts Options, rep *report.PipelineReport) ([]ir.Finding, []editop.EditOp, error) {
	h := rep.BeginStage("lint")
	findings := lint.Document(doc, stylePack)
	findings = append(findings, lint.ProseCandidates(doc)...)
	var linterOps []editop.EditOp
	if linter != nil {
		lf, lo, err := linter.Run(ctx, doc)
		if err != nil {
			log.Printf("vale lint failed: %v", err)
			rep.AddSignal("vale_failed", "lint", "warning", err.Error(), 0)
		} else {
			findings = append(findings, lf...)
			linterOps = lo
		}
	}
	rep.EndStage(h, "", map[string]float64{"findings": float64(len(findings))}, nil, nil)

	h = rep.BeginStage("propose")
	replacements := append(append([]rules.ReplacementRule{}, stylePack.ReplacementRules...), prosePack.ReplacementRules...)
	ops := propose.FromRules(doc, replacements, protectedTerms)
	ops = append(ops, linterOps...)

	if opts.UseLLM && opts.Mode == ModeRewrite {
		client, err := llm.New(ctx, opts.LLM)
		if err != nil {
			rep.EndStage(h, "error", nil, nil, err)
			return nil, nil, fmt.Errorf("llm client: %w", err)
		}
		llmOps := propose.FromLLM(ctx, client, doc, findings, propose.LLMOptions{
			Batch: llm.BatchOptions{
				Concurrency: opts.Concurrency,
				MaxRetries:  3,
				MinInterval: 150 * time.Millisecond,
			},
		})
		ops = append(ops, llmOps...)
	}
	rep.EndStage(h, "", map[string]float64{"ops": float64(len(ops))}, nil, nil)

	h = rep.BeginStage("apply")
	ops = apply.EditOps(doc, ops, apply.DefaultOptions(nil))
	counts := editop.CountByStatus(ops)
	rep.EndStage(h, "", map[string]float64{
		"applied":  float64(counts[editop.Applied]),
		"rejected": float64(counts[editop.Rejected]),
	}, nil, nil)

	h = rep.BeginStage("verify")
	findings = append(findings, verify.Ops(ops, protectedTerms)...)
	rep.EndStage(h, "", nil, nil, nil)

	return findings, ops, nil
}

// runHolistic is the whole-document flow: chunked LLM rewrite with
// validation, then a deterministic style polish over the reassembled text.
func runHolistic(ctx context.Context, doc *ir.DocumentIR, linter *vale.Runner, stylePack, prosePack *rules.Pack, protectedTerms []string, opts Options, rep *report.PipelineReport) (*holistic.Result, []ir.Finding, []editop.EditOp, error) {
	client, err := llm.New(ctx, opts.LLM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("llm client: %w", err)
	}

	rewriteCfg := holistic.DefaultRewriteConfig()
	rewriteCfg.Model = opts.LLM.Model
	if opts.Concurrency > 0 {
		rewriteCfg.Concurrency = opts.Concurrency
	}

	h := rep.BeginStage("holistic_rewrite")
	result, err := holistic.Run(ctx, doc, client, holistic.Config{
		ChunkStrategy:  holistic.ChunkStrategy(opts.ChunkStrategy),
		Rewrite:        rewriteCfg,
		ProtectedTerms: protectedTerms,
		Linter:         linter,
		AutoAccept:     opts.AutoAccept,
		FeedbackRetry:  opts.FeedbackRetry,
	})
	if err != nil {
		rep.EndStage(h, "error", nil, nil, err)
		return nil, nil, nil, err
	}
	rep.EndStage(h, "", map[string]float64{
		"chunks":   float64(result.Stats.TotalChunks),
		"accepted": float64(result.Stats.Accepted),
		"rejected": float64(result.Stats.Rejected),
		"flagged":  float64(result.Stats.Flagged),
	}, nil, nil)

	h = rep.BeginStage("style_polish")
	polish := holistic.RunStylePolish(ctx, result.FinalIR, holistic.PolishConfig{
		StylePack:      stylePack,
		ProsePack:      prosePack,
		ProtectedTerms: protectedTerms,
		Linter:         linter,
	})
	rep.EndStage(h, "", map[string]float64{
		"applied":  float64(polish.Applied),
		"rejected": float64(polish.Rejected),
	}, []string{polish.Summary}, nil)

	findings := append([]ir.Finding{}, polish.Findings...)
	findings = append(findings, verify.ProtectedTerms(result.OriginalIR, polish.OutputIR, protectedTerms)...)
	result.FinalIR = polish.OutputIR
	return result, findings, polish.EditOps, nil
}

type bundlePaths struct {
	original      string
	clean         string
	redline       string
	changelogJSON string
	changelogTxt  string
}

// makeBundle creates the timestamped bundle directory and copies the input
// into it, so the bundle is self-contained.
func makeBundle(inputPath, outDir string, started time.Time) (string, bundlePaths, error) {
	var paths bundlePaths
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	bundle := filepath.Join(outDir, fmt.Sprintf("%s_%s", stem, started.Format("20060102_150405")))
	if err := os.MkdirAll(bundle, 0755); err != nil {
		return "", paths, err
	}
	paths = bundlePaths{
		original:      filepath.Join(bundle, stem+".original.docx"),
		clean:         filepath.Join(bundle, stem+".clean.docx"),
		redline:       filepath.Join(bundle, stem+".redline.docx"),
		changelogJSON: filepath.Join(bundle, stem+".changelog.json"),
		changelogTxt:  filepath.Join(bundle, stem+".changelog.txt"),
	}
	if err := copyFile(inputPath, paths.original); err != nil {
		return "", paths, fmt.Errorf("copy input: %w", err)
	}
	return bundle, paths, nil
}

func loadRules(opts Options, rep *report.PipelineReport) (*rules.Pack, *rules.Pack, []string, rules.ChecklistResult, error) {
	h := rep.BeginStage("load_rules")
	stylePack, err := rules.LoadPack(defaultPath(opts.StyleRulesPath, "rules/style_rules.yml"))
	if err != nil {
		rep.EndStage(h, "error", nil, nil, err)
		return nil, nil, nil, rules.ChecklistResult{}, err
	}
	prosePack, err := rules.LoadPack(defaultPath(opts.ProseRulesPath, "rules/prose_rules.yml"))
	if err != nil {
		rep.EndStage(h, "error", nil, nil, err)
		return nil, nil, nil, rules.ChecklistResult{}, err
	}
	protectedTerms, err := rules.LoadProtectedTerms(defaultPath(opts.ProtectedTermsPath, "rules/protected_terms.yml"))
	if err != nil {
		rep.EndStage(h, "error", nil, nil, err)
		return nil, nil, nil, rules.ChecklistResult{}, err
	}
	checklist := rules.CheckCoverage(stylePack)
	if !checklist.OK {
		rep.AddSignal("checklist_incomplete", "load_rules", "warning",
			"Rule pack is missing capabilities: "+strings.Join(checklist.Missing, ", "), 0)
	}
	rep.EndStage(h, "", map[string]float64{
		"style_rules":     float64(len(stylePack.ReplacementRules)),
		"prose_rules":     float64(len(prosePack.ReplacementRules)),
		"protected_terms": float64(len(protectedTerms)),
	}, nil, nil)
	return stylePack, prosePack, protectedTerms, checklist, nil
}

func recordHistory(ctx context.Context, opts Options, runID, bundle string, started time.Time, stats map[string]int, reviewNeeded bool, ops []editop.EditOp, findings []ir.Finding) error {
	store, err := history.Open(opts.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(ctx, history.Run{
		ID:           runID,
		Mode:         opts.Mode,
		InputPath:    opts.InputPath,
		BundleDir:    bundle,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
		Stats:        stats,
		ReviewNeeded: reviewNeeded,
	}, ops, findings)
}

func defaultPath(path, fallback string) string {
	if path != "" {
		return path
	}
	return fallback
}

func countByEngine(ops []editop.EditOp, engine string) int {
	n := 0
	for _, op := range ops {
		if op.Engine == engine {
			n++
		}
	}
	return n
}

func docBlocks(doc *ir.DocumentIR) []ir.TextBlock {
	if doc == nil {
		return nil
	}
	return doc.Blocks
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
