// Package service sequences the evaluation pipeline: load the declarative
// document, validate it, arm the engine, and answer per-request
// evaluations. It owns the active configuration; the engine and handlers
// only ever see read-only references.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lpoole/gatez/internal/core"
	"github.com/lpoole/gatez/internal/validate"
)

// NotConfiguredMessage is the user-visible error for evaluations attempted
// before a configuration has been loaded.
const NotConfiguredMessage = "configuration not loaded"

// Loader supplies the raw configuration document.
type Loader interface {
	Load(ctx context.Context) (any, error)
}

// EvaluationResult is the outcome of a single evaluation. Features and
// Error are mutually exclusive: on success Features holds the sorted,
// deduplicated enabled set (possibly empty), on failure Error holds a
// single descriptive message. Features is omitzero rather than omitempty
// so that an empty enabled set still serializes as "features":[] while
// failure results (nil Features) carry no features key at all.
type EvaluationResult struct {
	Success  bool     `json:"success"`
	Features []string `json:"features,omitzero"`
	Error    string   `json:"error,omitempty"`
}

// ConfigSummary describes the active configuration without exposing the
// rule internals.
type ConfigSummary struct {
	SupportedPlans   []string `json:"supportedPlans"`
	SupportedRegions []string `json:"supportedRegions"`
	FeatureCount     int      `json:"featureCount"`
	RuleCount        int      `json:"ruleCount"`
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithLogger sets the logger used for load and reload reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvaluationMetrics registers a hook called once per evaluation with
// the outcome: "success", "invalid_input", or "not_configured".
func WithEvaluationMetrics(record func(outcome string)) Option {
	return func(s *Service) { s.recordEvaluation = record }
}

// WithReloadMetrics registers a hook called once per load attempt.
func WithReloadMetrics(record func(success bool)) Option {
	return func(s *Service) { s.recordReload = record }
}

// WithConfigGauges registers a hook called with the feature and rule
// counts after each successful load.
func WithConfigGauges(set func(features, rules float64)) Option {
	return func(s *Service) { s.setConfigGauges = set }
}

// Service is the orchestrator described in the system overview. It is safe
// for concurrent use: reloads swap the engine's configuration atomically
// while evaluations proceed.
type Service struct {
	loader Loader
	engine *core.Engine
	logger *slog.Logger
	tracer trace.Tracer

	recordEvaluation func(outcome string)
	recordReload     func(success bool)
	setConfigGauges  func(features, rules float64)
}

// New builds a Service and performs the initial load. A document that
// cannot be loaded or fails validation is a startup error.
func New(ctx context.Context, loader Loader, opts ...Option) (*Service, error) {
	if loader == nil {
		return nil, errors.New("loader is nil")
	}

	s := &Service{
		loader: loader,
		engine: core.NewEngine(),
		logger: slog.Default(),
		tracer: otel.Tracer("gatez/service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload re-runs load → validate → swap. On any failure the previously
// active configuration stays armed, so a bad deploy never takes down
// evaluation.
func (s *Service) Reload(ctx context.Context) error {
	document, err := s.loader.Load(ctx)
	if err != nil {
		s.reloadResult(false)
		return fmt.Errorf("load configuration document: %w", err)
	}

	config, err := validate.Build(document)
	if err != nil {
		s.reloadResult(false)
		return err
	}

	s.engine.SetConfiguration(&config)
	s.reloadResult(true)
	if s.setConfigGauges != nil {
		s.setConfigGauges(float64(len(config.Features)), float64(len(config.Rules)))
	}

	s.logger.InfoContext(ctx, "configuration loaded",
		slog.Int("plans", len(config.SupportedPlans)),
		slog.Int("regions", len(config.SupportedRegions)),
		slog.Int("features", len(config.Features)),
		slog.Int("rules", len(config.Rules)),
	)

	return nil
}

// Evaluate validates the user context against the active configuration and
// runs the rules. It never returns a partial feature list alongside an
// error.
func (s *Service) Evaluate(ctx context.Context, userContext *core.UserContext) EvaluationResult {
	_, span := s.tracer.Start(ctx, "gatez.evaluate")
	defer span.End()

	config := s.engine.Configuration()
	if config == nil {
		s.evaluationResult(span, "not_configured")
		return EvaluationResult{Error: NotConfiguredMessage}
	}

	if message := core.ValidateContext(config, userContext); message != "" {
		s.evaluationResult(span, "invalid_input")
		return EvaluationResult{Error: message}
	}

	span.SetAttributes(
		attribute.String("gatez.plan", userContext.Plan),
		attribute.String("gatez.region", userContext.Region),
	)

	features, err := s.engine.EvaluateRules(*userContext)
	if err != nil {
		// Only possible if the engine was never armed, which New rules out.
		s.evaluationResult(span, "not_configured")
		return EvaluationResult{Error: NotConfiguredMessage}
	}

	s.evaluationResult(span, "success")
	span.SetAttributes(attribute.Int("gatez.enabled_features", len(features)))
	return EvaluationResult{Success: true, Features: features}
}

// ValidateDocument checks an arbitrary parsed document against the
// configuration schema without touching the active configuration.
func (s *Service) ValidateDocument(document any) validate.Result {
	return validate.Validate(document)
}

// Features returns the active feature catalog, or nil before the first
// successful load.
func (s *Service) Features() []core.FeatureDefinition {
	config := s.engine.Configuration()
	if config == nil {
		return nil
	}
	return config.Features
}

// Summary describes the active configuration.
func (s *Service) Summary() ConfigSummary {
	config := s.engine.Configuration()
	if config == nil {
		return ConfigSummary{}
	}
	return ConfigSummary{
		SupportedPlans:   config.SupportedPlans,
		SupportedRegions: config.SupportedRegions,
		FeatureCount:     len(config.Features),
		RuleCount:        len(config.Rules),
	}
}

func (s *Service) reloadResult(success bool) {
	if s.recordReload != nil {
		s.recordReload(success)
	}
}

func (s *Service) evaluationResult(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("gatez.outcome", outcome))
	if s.recordEvaluation != nil {
		s.recordEvaluation(outcome)
	}
}
