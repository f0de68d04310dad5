// Package engine runs one generation request end to end: it builds the seeded skeleton,
// asks the text-generation collaborator for prose, and repairs, merges and validates the
// reply under a fixed call budget.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/danshapiro/murderparty/internal/llm"
	"github.com/danshapiro/murderparty/internal/mystery/catalog"
	"github.com/danshapiro/murderparty/internal/mystery/model"
	"github.com/danshapiro/murderparty/internal/mystery/prompts"
	"github.com/danshapiro/murderparty/internal/mystery/safety"
	"github.com/danshapiro/murderparty/internal/mystery/seed"
	"github.com/danshapiro/murderparty/internal/mystery/structure"
)

const (
	DefaultTone     = "suspense"
	DefaultDuration = 60

	// maxCalls bounds collaborator calls per request across every repair path.
	maxCalls = 3

	defaultCallTimeout = 30 * time.Second
	debugTailChars     = 300
)

// Collaborator produces free text for a prompt. *llm.Client satisfies it.
type Collaborator interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// TokenBudget sizes max_tokens by player count.
type TokenBudget struct {
	Base       int
	PerPlayer  int
	Cap        int
	RetryExtra int
}

var DefaultBudget = TokenBudget{Base: 3200, PerPlayer: 250, Cap: 6500, RetryExtra: 800}

// For returns the primary budget and the larger budget used by retries and repairs.
func (b TokenBudget) For(players int) (primary, retry int) {
	primary = min(b.Cap, b.Base+max(0, players-6)*b.PerPlayer)
	retry = min(b.Cap, primary+b.RetryExtra)
	return primary, retry
}

// Config is everything the engine needs; nothing is read from the environment.
type Config struct {
	Provider string
	// Model is sent with every call and stamped into meta.model. Empty lets the
	// collaborator pick, in which case the served model is stamped.
	Model           string
	CallTimeout     time.Duration
	Mock            bool
	DebugOutput     bool
	DefaultTone     string
	DefaultDuration int
	Budget          TokenBudget

	Prompts    *prompts.Set
	Safety     *safety.Filter
	Categories []model.Category
	Logger     *zap.Logger
}

type Engine struct {
	cfg    Config
	llm    Collaborator
	logger *zap.Logger
}

// New fills unset Config fields with defaults. collab may be nil only in mock mode.
func New(cfg Config, collab Collaborator) (*Engine, error) {
	if collab == nil && !cfg.Mock {
		return nil, fmt.Errorf("engine: a collaborator is required unless mock mode is on")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if strings.TrimSpace(cfg.DefaultTone) == "" {
		cfg.DefaultTone = DefaultTone
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = DefaultDuration
	}
	if cfg.Budget.Base <= 0 {
		cfg.Budget.Base = DefaultBudget.Base
	}
	if cfg.Budget.PerPlayer < 0 {
		cfg.Budget.PerPlayer = 0
	} else if cfg.Budget.PerPlayer == 0 {
		cfg.Budget.PerPlayer = DefaultBudget.PerPlayer
	}
	if cfg.Budget.Cap <= 0 {
		cfg.Budget.Cap = DefaultBudget.Cap
	}
	if cfg.Budget.RetryExtra <= 0 {
		cfg.Budget.RetryExtra = DefaultBudget.RetryExtra
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.Default()
	}
	if cfg.Safety == nil {
		cfg.Safety = safety.New()
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = catalog.All()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, llm: collab, logger: cfg.Logger}, nil
}

// Categories returns the catalog the engine resolves category ids against.
func (e *Engine) Categories() []model.Category {
	return append([]model.Category(nil), e.cfg.Categories...)
}

type Request struct {
	PlayerCount int      `json:"player_count"`
	PlayerNames []string `json:"player_names,omitempty"`
	CategoryID  string   `json:"category_id"`
	Tone        string   `json:"tone,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

// Validate rejects requests that must never reach generation.
func (r Request) Validate() error {
	if r.PlayerCount < seed.MinPlayers || r.PlayerCount > seed.MaxPlayers {
		return &ConfigError{Field: "player_count", Message: fmt.Sprintf("must be between %d and %d, got %d", seed.MinPlayers, seed.MaxPlayers, r.PlayerCount)}
	}
	if len(r.PlayerNames) > 0 && len(r.PlayerNames) != r.PlayerCount {
		return &ConfigError{Field: "player_names", Message: "player_names length must match player_count"}
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return &ConfigError{Field: "category_id", Message: `required (a category id or "random")`}
	}
	if r.Duration < 0 {
		return &ConfigError{Field: "duration", Message: "must be positive"}
	}
	return nil
}

type RunOptions struct {
	RunID        string
	ProgressSink func(map[string]any)
}

type Result struct {
	RunID           string
	Package         *model.Package
	Calls           int
	StructureDigest string
}

func NewRunID() string { return ulid.Make().String() }

// Generate runs the repair state machine for one request. A non-nil Result is returned
// whenever the run got past request validation, including on failure, so callers can
// report the run id and the number of collaborator calls made.
func (e *Engine) Generate(ctx context.Context, req Request, opts RunOptions) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	r, err := e.prepare(req, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: opts.RunID, StructureDigest: r.digest}
	err = r.run(ctx)
	res.Calls = r.calls
	if err != nil {
		return res, err
	}
	res.Package = r.merged
	return res, nil
}

// Skeleton builds the skeleton a request would start from, without calling the collaborator.
func (e *Engine) Skeleton(req Request) (*model.Package, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r, err := e.prepare(req, RunOptions{})
	if err != nil {
		return nil, err
	}
	return r.skeleton, nil
}

func (e *Engine) prepare(req Request, opts RunOptions) (*run, error) {
	seedValue := seed.Normalize(req.Seed)
	src := seed.NewSource(seedValue)
	category := catalog.Resolve(e.cfg.Categories, req.CategoryID, src)
	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = e.cfg.DefaultTone
	}
	duration := req.Duration
	if duration == 0 {
		duration = e.cfg.DefaultDuration
	}

	skeleton := structure.Build(structure.Spec{
		PlayerCount: req.PlayerCount,
		PlayerNames: req.PlayerNames,
		Category:    category,
		Tone:        tone,
		Duration:    duration,
		Seed:        seedValue,
	}, src)

	shareCode, err := seed.EncodeShareCode(seed.ShareData{
		Seed:        seedValue,
		PlayerCount: req.PlayerCount,
		CategoryID:  category.ID,
		Tone:        tone,
		Duration:    duration,
	})
	if err != nil {
		return nil, fmt.Errorf("encode share code: %w", err)
	}
	compact, err := marshalJSON(skeleton, false)
	if err != nil {
		return nil, fmt.Errorf("encode skeleton: %w", err)
	}
	primary, retry := e.cfg.Budget.For(req.PlayerCount)

	return &run{
		e:         e,
		id:        opts.RunID,
		sink:      opts.ProgressSink,
		logger:    e.logger.With(zap.String("run_id", opts.RunID)),
		category:  category,
		skeleton:  skeleton,
		base:      skeleton,
		expected:  model.ExpectedFrom(skeleton),
		digest:    structure.Digest(skeleton),
		shareCode: shareCode,
		model:     e.cfg.Model,
		structure: compact,
		maxTokens: primary,
		retryMax:  retry,
	}, nil
}

// call issues one collaborator request under the per-call timeout. Cancellation of ctx is
// returned as is; every other failure becomes an UpstreamError.
func (r *run) call(ctx context.Context, purpose, prompt string, temperature, topP float64, maxTokens int) error {
	if r.calls >= maxCalls {
		return fmt.Errorf("engine: collaborator call budget of %d exhausted before %s", maxCalls, purpose)
	}
	r.calls++
	r.emit("llm_call", map[string]any{"purpose": purpose, "call": r.calls, "max_tokens": maxTokens})

	callCtx, cancel := context.WithTimeout(ctx, r.e.cfg.CallTimeout)
	defer cancel()
	resp, err := r.e.llm.Complete(callCtx, llm.Request{
		Provider:     r.e.cfg.Provider,
		Model:        r.e.cfg.Model,
		SystemPrompt: r.system,
		Prompt:       prompt,
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		Purpose:      purpose,
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return err
		}
		return &UpstreamError{Purpose: purpose, Err: err}
	}
	if r.model == "" {
		r.model = resp.Model
	}
	r.raw = resp.Text
	r.debugOutput(purpose, resp.Truncated())
	return nil
}

func (r *run) debugOutput(purpose string, truncated bool) {
	if !r.e.cfg.DebugOutput {
		return
	}
	tail := r.raw
	if runes := []rune(tail); len(runes) > debugTailChars {
		tail = string(runes[len(runes)-debugTailChars:])
	}
	r.logger.Info("llm response",
		zap.String("purpose", purpose),
		zap.Int("len", len(r.raw)),
		zap.Bool("balanced", balanced(r.raw)),
		zap.Bool("truncated", truncated),
		zap.String("tail", tail),
	)
}

func (r *run) emit(kind string, fields map[string]any) {
	if r.sink == nil {
		return
	}
	ev := map[string]any{
		"event":  kind,
		"run_id": r.id,
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		ev[k] = v
	}
	r.sink(ev)
}

func marshalJSON(v any, indent bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
