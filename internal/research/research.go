// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research turns a free-text health query into a structured
// research document. Stage 1 asks the research provider for the document;
// Stage 2, when configured, asks a second provider to reword its prose.
// Only Stage 1 hard failures are errors: an unparseable Stage 1 response
// degrades to a summary-only document, and every Stage 2 failure keeps the
// Stage 1 document.
package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/pdiddy/health-search/internal/provider"
	"github.com/pdiddy/health-search/internal/query"
	"github.com/pdiddy/health-search/pkg/types"
)

// Stage names which step produced the returned document.
type Stage string

const (
	StageDegraded Stage = "degraded"
	StageResearch Stage = "research"
	StageEnhanced Stage = "enhanced"
)

// Outcome is the best available result for one query.
type Outcome struct {
	Query    string
	Document *types.Document
	Stage    Stage
}

// Completer abstracts a chat-completions provider so tests can supply a fake.
type Completer interface {
	Complete(ctx context.Context, req provider.Request) (string, error)
}

// Observer receives pipeline events. The metrics collector implements it.
type Observer interface {
	ObserveProvider(name string, status int, elapsed time.Duration)
	ObserveStage(stage string)
}

type nopObserver struct{}

func (nopObserver) ObserveProvider(string, int, time.Duration) {}
func (nopObserver) ObserveStage(string)                        {}

// Keys holds the two provider API keys. An empty Research key leaves the
// orchestrator unconfigured; an empty Enhancement key disables Stage 2.
type Keys struct {
	Research    string
	Enhancement string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithObserver reports provider calls and stage outcomes to obs.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithResearchBackend replaces the Stage 1 provider.
func WithResearchBackend(c Completer) Option {
	return func(o *Orchestrator) { o.research = c }
}

// WithEnhancementBackend replaces the Stage 2 provider.
func WithEnhancementBackend(c Completer) Option {
	return func(o *Orchestrator) { o.enhancer = c }
}

// Orchestrator runs the two-stage pipeline. It is safe for concurrent use;
// the only state shared between requests is the Stage 2 circuit breaker.
type Orchestrator struct {
	cfg      types.OrchestratorConfig
	research Completer
	enhancer Completer
	breaker  *gobreaker.CircuitBreaker
	observer Observer
	logger   *zap.Logger
}

// New builds an orchestrator from explicit configuration and keys.
func New(cfg types.OrchestratorConfig, keys Keys, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Extraction == "" {
		cfg.Extraction = types.ExtractGreedy
	}

	o := &Orchestrator{
		cfg:      cfg,
		observer: nopObserver{},
		logger:   logger,
	}

	if keys.Research != "" {
		rc := cfg.Research
		rc.APIKey = keys.Research
		o.research = provider.New("research", rc)
	}
	if keys.Enhancement != "" {
		ec := cfg.Enhancement.ProviderConfig
		ec.APIKey = keys.Enhancement
		o.enhancer = provider.New("enhancement", ec)
	}

	for _, opt := range opts {
		opt(o)
	}

	o.breaker = newBreaker(cfg.Enhancement.Breaker, logger)
	return o
}

func newBreaker(cfg types.BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "enhancement",
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Configured returns a ConfigurationError when the research key is absent.
func (o *Orchestrator) Configured() error {
	if o.research == nil {
		return configurationError()
	}
	return nil
}

// EnhancementEnabled reports whether Stage 2 will be attempted.
func (o *Orchestrator) EnhancementEnabled() bool {
	return o.enhancer != nil
}

// Search runs the pipeline for one raw query. It fails only with an *Error
// of kind Configuration, Validation, RateLimit, ServiceUnavailable,
// Upstream or EmptyResponse.
func (o *Orchestrator) Search(ctx context.Context, raw string) (Outcome, error) {
	if err := o.Configured(); err != nil {
		o.logger.Error("configuration error: research API key not set")
		return Outcome{}, err
	}

	q, err := query.Validate(raw)
	if err != nil {
		return Outcome{}, ValidationError(err)
	}

	o.logger.Info("processing health search query", zap.Int("length", utf8.RuneCountInString(q)))

	text, err := o.runResearch(ctx, q)
	if err != nil {
		return Outcome{}, err
	}

	doc, _, err := parseDocument(text, o.cfg.Extraction)
	if err != nil {
		o.logger.Warn("failed to parse research response, returning degraded document", zap.Error(err))
		o.observer.ObserveStage(string(StageDegraded))
		return Outcome{Query: q, Document: DegradedDocument(text), Stage: StageDegraded}, nil
	}

	out := Outcome{Query: q, Document: doc, Stage: StageResearch}
	if enhanced, ok := o.enhance(ctx, doc); ok {
		out.Document = enhanced
		out.Stage = StageEnhanced
	}

	o.observer.ObserveStage(string(out.Stage))
	o.logger.Info("query processed",
		zap.String("stage", string(out.Stage)),
		zap.Int("results", len(out.Document.Results)))
	return out, nil
}

// runResearch performs the single Stage 1 call and classifies its failure.
func (o *Orchestrator) runResearch(ctx context.Context, q string) (string, error) {
	system, err := renderResearchSystem()
	if err != nil {
		return "", &Error{Kind: KindUpstream, Message: msgUpstream, Err: err}
	}
	user, err := renderResearchUser(q)
	if err != nil {
		return "", &Error{Kind: KindUpstream, Message: msgUpstream, Err: err}
	}

	o.logger.Debug("stage 1: requesting research data")
	start := time.Now()
	text, err := o.research.Complete(ctx, provider.Request{Messages: []provider.Message{
		{Role: provider.RoleSystem, Content: system},
		{Role: provider.RoleUser, Content: user},
	}})
	o.observer.ObserveProvider("research", observedStatus(err), time.Since(start))

	if err != nil {
		rerr := classifyResearchError(err)
		o.logger.Error("research provider call failed",
			zap.String("kind", rerr.Kind.String()),
			zap.Int("status", provider.StatusCode(err)),
			zap.Error(err))
		return "", rerr
	}
	return text, nil
}

func classifyResearchError(err error) *Error {
	switch code := provider.StatusCode(err); {
	case code == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, Message: msgRateLimit, Err: err}
	case code == http.StatusPaymentRequired:
		return &Error{Kind: KindServiceUnavailable, Message: msgServiceUnavailable, Err: err}
	case code != 0:
		return &Error{Kind: KindUpstream, Message: msgUpstream, Err: err}
	case errors.Is(err, provider.ErrEmptyContent):
		return &Error{Kind: KindEmptyResponse, Message: msgEmptyResponse, Err: err}
	default:
		return &Error{Kind: KindUpstream, Message: MsgInternal, Err: err}
	}
}

// enhance runs Stage 2. Every failure is logged and reported as !ok.
func (o *Orchestrator) enhance(ctx context.Context, doc *types.Document) (*types.Document, bool) {
	if o.enhancer == nil {
		o.logger.Debug("enhancement key not set, skipping enhancement stage")
		return nil, false
	}

	result, err := o.breaker.Execute(func() (interface{}, error) {
		return o.runEnhancement(ctx, doc)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			o.logger.Info("enhancement circuit open, using research document")
		} else {
			o.logger.Info("enhancement failed, using research document", zap.Error(err))
		}
		return nil, false
	}
	return result.(*types.Document), true
}

func (o *Orchestrator) runEnhancement(ctx context.Context, doc *types.Document) (*types.Document, error) {
	user, err := renderEnhancementUser(doc)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("stage 2: enhancing wording")
	start := time.Now()
	text, err := o.enhancer.Complete(ctx, provider.Request{Messages: []provider.Message{
		{Role: provider.RoleSystem, Content: enhancementSystemPrompt},
		{Role: provider.RoleUser, Content: user},
	}})
	o.observer.ObserveProvider("enhancement", observedStatus(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	enhanced, fields, err := parseDocument(text, o.cfg.Extraction)
	if err != nil {
		return nil, err
	}
	if !hasFields(fields, "results", "summary") {
		return nil, errMissingField
	}
	return enhanced, nil
}

// observedStatus is the status recorded for a provider call: the upstream
// code for HTTP failures, 0 for transport failures, 200 otherwise.
func observedStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if code := provider.StatusCode(err); code != 0 {
		return code
	}
	if errors.Is(err, provider.ErrEmptyContent) {
		return http.StatusOK
	}
	return 0
}

// String renders an outcome for logs.
func (o Outcome) String() string {
	if o.Document == nil {
		return fmt.Sprintf("%s: <nil>", o.Stage)
	}
	return fmt.Sprintf("%s: %d results", o.Stage, len(o.Document.Results))
}
