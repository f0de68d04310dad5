package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danshapiro/murderparty/internal/mystery/merge"
	"github.com/danshapiro/murderparty/internal/mystery/model"
	"github.com/danshapiro/murderparty/internal/mystery/parse"
	"github.com/danshapiro/murderparty/internal/mystery/prompts"
	"github.com/danshapiro/murderparty/internal/mystery/structure"
	"github.com/danshapiro/murderparty/internal/mystery/validate"
)

type State string

const (
	StateGenerate      State = "generate"
	StateParse         State = "parse_or_repair_json"
	StateMergeValidate State = "merge_validate"
	StateSafetyScan    State = "safety_scan"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// transitions lists the legal successors of each non-terminal state. Self-loops carry a
// repair attempt; the per-run flags below cap how often each one can happen.
var transitions = map[State][]State{
	StateGenerate:      {StateParse},
	StateParse:         {StateParse, StateMergeValidate},
	StateMergeValidate: {StateMergeValidate, StateSafetyScan},
	StateSafetyScan:    {StateDone},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type stateFunc func(r *run, ctx context.Context) (State, error)

var handlers = map[State]stateFunc{
	StateGenerate:      (*run).generate,
	StateParse:         (*run).parseOrRepair,
	StateMergeValidate: (*run).mergeValidate,
	StateSafetyScan:    (*run).safetyScan,
}

// run is the request-scoped state of one generation. Nothing in it is shared.
type run struct {
	e      *Engine
	id     string
	sink   func(map[string]any)
	logger *zap.Logger

	category  model.Category
	skeleton  *model.Package
	base      *model.Package // merge target; the skeleton until a validation repair
	expected  model.Expected
	digest    string
	shareCode string
	model     string

	system    string
	prompt    string
	structure string
	maxTokens int
	retryMax  int

	raw       string
	candidate map[string]any
	merged    *model.Package
	calls     int

	truncationRetried  bool
	jsonRepaired       bool
	validationRepaired bool
}

func (r *run) run(ctx context.Context) error {
	start := time.Now()
	state := StateGenerate
	r.emit("state", map[string]any{"state": string(state)})
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return r.fail(state, err)
		}
		next, err := handlers[state](r, ctx)
		if err != nil {
			return r.fail(state, err)
		}
		if !canTransition(state, next) {
			return r.fail(state, fmt.Errorf("engine: illegal transition %s -> %s", state, next))
		}
		r.logger.Debug("state transition", zap.String("from", string(state)), zap.String("to", string(next)), zap.Int("calls", r.calls))
		state = next
		r.emit("state", map[string]any{"state": string(state)})
	}
	if err := r.finish(); err != nil {
		return r.fail(StateDone, err)
	}
	r.logger.Info("generation finished",
		zap.Int("calls", r.calls),
		zap.String("category_id", r.category.ID),
		zap.String("structure_digest", r.digest),
		zap.Duration("elapsed", time.Since(start)),
	)
	r.emit("done", map[string]any{"calls": r.calls, "share_code": r.shareCode, "structure_digest": r.digest})
	return nil
}

func (r *run) fail(state State, err error) error {
	fields := map[string]any{"state": string(state), "error": err.Error(), "calls": r.calls}
	if issues := issuesOf(err); len(issues) > 0 {
		fields["issues"] = issues
	}
	r.logger.Warn("generation failed", zap.String("state", string(state)), zap.Int("calls", r.calls), zap.Error(err))
	r.emit("failed", fields)
	return err
}

func (r *run) generate(ctx context.Context) (State, error) {
	if r.e.cfg.Mock {
		text, err := marshalJSON(structure.FillMock(r.skeleton, r.category), false)
		if err != nil {
			return "", err
		}
		r.raw = text
		return StateParse, nil
	}
	system, err := r.e.cfg.Prompts.Get(prompts.System)
	if err != nil {
		return "", err
	}
	tmpl, err := r.e.cfg.Prompts.Get(prompts.Generation)
	if err != nil {
		return "", err
	}
	r.system = system
	r.prompt = prompts.Fill(tmpl, map[string]string{
		"category_name":        r.category.Name,
		"category_description": r.category.Description,
		"tone_tags":            strings.Join(r.category.ToneTags, ", "),
		"suggested_props":      strings.Join(r.category.SuggestedProps, ", "),
		"suggested_archetypes": strings.Join(r.category.SuggestedArchetypes, ", "),
		"seed":                 strconv.FormatInt(r.skeleton.Meta.Seed, 10),
		"structure":            r.structure,
	})
	if err := r.call(ctx, "generate", r.prompt, 0.2, 0.85, r.maxTokens); err != nil {
		return "", err
	}
	return StateParse, nil
}

// parseOrRepair decodes the latest reply. An unbalanced primary reply looks truncated and
// is re-requested once with a larger budget; anything else that fails to parse gets one
// JSON repair request. A failure after that is fatal.
func (r *run) parseOrRepair(ctx context.Context) (State, error) {
	cand, err := parse.Strict(r.raw)
	if err == nil {
		r.candidate = cand
		return StateMergeValidate, nil
	}
	if !parse.IsParseFailure(err) || r.e.cfg.Mock {
		return "", err
	}
	switch {
	case !r.truncationRetried && !r.jsonRepaired && !balanced(r.raw):
		r.truncationRetried = true
		r.logger.Info("response looks truncated, retrying", zap.Int("max_tokens", r.retryMax))
		if err := r.call(ctx, "truncation_retry", r.prompt, 0.1, 0.85, r.retryMax); err != nil {
			return "", err
		}
		return StateParse, nil
	case !r.jsonRepaired:
		r.jsonRepaired = true
		tokens := r.maxTokens
		if r.truncationRetried {
			tokens = r.retryMax
		}
		rawDoc, merr := marshalJSON(map[string]string{"raw_output": r.raw}, true)
		if merr != nil {
			return "", merr
		}
		prompt, perr := r.repairPrompt("- JSON parse error: "+parseMessage(err), rawDoc)
		if perr != nil {
			return "", perr
		}
		r.logger.Info("response did not parse, requesting JSON repair", zap.Error(err))
		if err := r.call(ctx, "json_repair", prompt, 0.2, 0.8, tokens); err != nil {
			return "", err
		}
		return StateParse, nil
	default:
		return "", err
	}
}

// mergeValidate folds the candidate into the current base and validates. One validation
// repair is allowed, and only while the call budget has room for it.
func (r *run) mergeValidate(ctx context.Context) (State, error) {
	merged := merge.Merge(r.base, r.candidate)
	merge.Normalize(merged)
	issues := validate.Package(merged, r.expected)
	if len(issues) == 0 {
		r.merged = merged
		return StateSafetyScan, nil
	}
	if r.validationRepaired || r.calls >= maxCalls || r.e.cfg.Mock {
		return "", &ValidationFailedError{Issues: issues}
	}
	r.validationRepaired = true

	current, err := marshalJSON(merged, true)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		lines = append(lines, "- "+issue)
	}
	prompt, err := r.repairPrompt(strings.Join(lines, "\n"), current)
	if err != nil {
		return "", err
	}
	r.logger.Info("package failed validation, requesting repair", zap.Strings("issues", issues))
	if err := r.call(ctx, "validation_repair", prompt, 0.2, 0.85, r.retryMax); err != nil {
		return "", err
	}
	cand, err := parse.Strict(r.raw)
	if err != nil {
		return "", err
	}
	r.base = merged
	r.candidate = cand
	return StateMergeValidate, nil
}

func (r *run) safetyScan(ctx context.Context) (State, error) {
	text, err := marshalJSON(r.merged, false)
	if err != nil {
		return "", err
	}
	if matches := r.e.cfg.Safety.Scan(text); len(matches) > 0 {
		return "", &SafetyRejectedError{Matches: matches}
	}
	return StateDone, nil
}

// finish stamps the share code and model, then checks the result against the package schema.
func (r *run) finish() error {
	r.merged.Meta.ShareCode = r.shareCode
	r.merged.Meta.Model = r.model
	issues, err := validate.Schema(r.merged)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if len(issues) > 0 {
		return &ValidationFailedError{Issues: issues}
	}
	return nil
}

func (r *run) repairPrompt(issues, candidate string) (string, error) {
	tmpl, err := r.e.cfg.Prompts.Get(prompts.ValidationRepair)
	if err != nil {
		return "", err
	}
	return prompts.Fill(tmpl, map[string]string{
		"issues":    issues,
		"structure": r.structure,
		"candidate": candidate,
	}), nil
}

func balanced(raw string) bool {
	return parse.Balanced(parse.StripFence(raw))
}

func parseMessage(err error) string {
	var jerr *parse.JSONParseError
	if errors.As(err, &jerr) {
		return jerr.Msg
	}
	var merr *parse.MalformedResponseError
	if errors.As(err, &merr) {
		return merr.Reason
	}
	return err.Error()
}

func issuesOf(err error) []string {
	var vf *ValidationFailedError
	if errors.As(err, &vf) {
		return vf.Issues
	}
	return nil
}
