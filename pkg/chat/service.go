package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/providers"
	"yiyi-hq/gateway/pkg/routing"
	"yiyi-hq/gateway/pkg/session"
	"yiyi-hq/gateway/pkg/telemetry/logging"
	"yiyi-hq/gateway/pkg/telemetry/metrics"
	"yiyi-hq/gateway/pkg/telemetry/tracing"
	"yiyi-hq/gateway/pkg/usage"
)

// AdapterResolver returns the adapter for a resolved model.
// *providerfactory.Registry implements it.
type AdapterResolver interface {
	ResolveAdapter(model *providers.ResolvedModel) (providers.Adapter, error)
}

// ServiceOptions holds the orchestrator's collaborators. Config, Registry
// and Store are required; the rest are optional.
type ServiceOptions struct {
	// Config returns the configuration for a new turn. Defaults to
	// config.GetConfig.
	Config func() *config.Config

	Registry AdapterResolver
	Store    *session.Store

	Health  *providers.HealthTracker
	Usage   usage.Ledger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
}

// Service runs chat turns over the fallback chain.
type Service struct {
	config   func() *config.Config
	registry AdapterResolver
	store    *session.Store
	health   *providers.HealthTracker
	usage    usage.Ledger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	s := &Service{
		config:   opts.Config,
		registry: opts.Registry,
		store:    opts.Store,
		health:   opts.Health,
		usage:    opts.Usage,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   opts.Logger,
	}
	if s.config == nil {
		s.config = config.GetConfig
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "chat")
	return s
}

// Chat starts a turn and returns its event stream.
//
// The returned error is reserved for defects found before any model is
// tried: a *ConfigError when no primary model is configured, or a
// *RequestError for an unusable turn. A config error still records the
// user message in the session; a request error leaves it untouched.
//
// The channel is always closed. If ctx ends mid-turn it is closed without
// a terminal event and nothing is committed to the session.
func (s *Service) Chat(ctx context.Context, turn Turn) (<-chan Event, error) {
	if turn.SessionID == "" {
		return nil, &RequestError{Message: "session id is required"}
	}

	cfg := s.config()
	var chain routing.Chain
	err := routing.ErrNoPrimaryModel
	if cfg != nil {
		chain, err = routing.BuildChain(cfg)
	}
	if err != nil {
		s.appendUser(ctx, turn)
		s.metrics.RecordTurn(metrics.StatusConfigError, 0, 0)
		return nil, &ConfigError{Cause: err}
	}

	events := make(chan Event, 16)
	go s.run(ctx, cfg, chain, turn, events)
	return events, nil
}

// appendUser records the user message of a turn that cannot be attempted.
// It waits for any turn already running on the session.
func (s *Service) appendUser(ctx context.Context, turn Turn) {
	unlock, err := s.store.Lock(ctx, turn.SessionID)
	if err != nil {
		return
	}
	defer unlock()

	s.store.Append(turn.SessionID, providers.Message{Role: providers.RoleUser, Content: turn.Content})
	s.metrics.SetSessions(s.store.Len())
}

// DeleteSession discards a session's history.
func (s *Service) DeleteSession(id string) {
	s.store.Delete(id)
	s.metrics.SetSessions(s.store.Len())
}

// attemptResult is the outcome of a successful attempt.
type attemptResult struct {
	model *providers.ResolvedModel
	text  string
	usage *providers.TokenUsage
}

func (s *Service) run(ctx context.Context, cfg *config.Config, chain routing.Chain, turn Turn, events chan<- Event) {
	defer close(events)

	start := time.Now()
	ctx = logging.WithSessionID(ctx, turn.SessionID)
	logger := s.logger.With("session_id", turn.SessionID)
	if requestID := logging.GetRequestID(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
	}

	unlock, err := s.store.Lock(ctx, turn.SessionID)
	if err != nil {
		s.metrics.RecordTurn(metrics.StatusCancelled, 0, time.Since(start))
		return
	}
	defer unlock()

	ctx, span := s.tracer.Start(ctx, tracing.SpanTurn,
		trace.WithAttributes(tracing.TurnAttributes(turn.SessionID, len(chain))...))
	defer span.End()

	s.store.Append(turn.SessionID, providers.Message{Role: providers.RoleUser, Content: turn.Content})
	s.metrics.SetSessions(s.store.Len())
	req := &providers.ChatRequest{Messages: s.store.Messages(turn.SessionID)}

	var lastErr error
	for i, ref := range chain {
		attempt := i + 1
		result, err := s.attempt(ctx, cfg, ref, attempt, req, events, logger)
		if err == nil {
			if result.text != "" {
				s.store.Append(turn.SessionID, providers.Message{Role: providers.RoleAssistant, Content: result.text})
			}
			s.recordUsage(ctx, turn.SessionID, attempt, result, logger)

			span.SetAttributes(
				attribute.Int(tracing.AttrAttempts, attempt),
				attribute.String(tracing.AttrOutcome, metrics.StatusSuccess),
			)
			tracing.SetStatus(span, nil)
			s.metrics.RecordTurn(metrics.StatusSuccess, attempt, time.Since(start))

			s.send(ctx, events, Event{Type: EventDone, Usage: result.usage, Model: result.model.Ref()})
			return
		}

		if ctx.Err() != nil {
			logger.Info("turn cancelled", "attempt", attempt, "model_ref", ref)
			span.SetAttributes(attribute.String(tracing.AttrOutcome, metrics.StatusCancelled))
			s.metrics.RecordTurn(metrics.StatusCancelled, attempt, time.Since(start))
			return
		}

		lastErr = err
		logger.Warn("model attempt failed",
			"attempt", attempt,
			"model_ref", ref,
			"remaining", len(chain)-attempt,
			"error_type", classifyError(err),
			"error", err,
		)
	}

	modelErr := &ModelError{Attempts: len(chain), Last: lastErr}
	logger.Error("all models failed", "attempts", len(chain), "error", lastErr)
	span.SetAttributes(
		attribute.Int(tracing.AttrAttempts, len(chain)),
		attribute.String(tracing.AttrOutcome, metrics.StatusModelError),
	)
	tracing.SetStatus(span, modelErr)
	s.metrics.RecordTurn(metrics.StatusModelError, len(chain), time.Since(start))

	s.send(ctx, events, Event{Type: EventError, Error: ToErrorPayload(modelErr)})
}

// attempt drives one chain entry. Deltas are relayed as they arrive; the
// accumulated text is returned only when the stream completes.
func (s *Service) attempt(ctx context.Context, cfg *config.Config, ref string, attempt int, req *providers.ChatRequest, events chan<- Event, logger *slog.Logger) (result *attemptResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanAttempt,
		trace.WithAttributes(tracing.AttemptAttributes(ref, attempt)...))
	defer span.End()

	start := time.Now()
	providerLabel, modelLabel, _ := strings.Cut(ref, "/")
	var model *providers.ResolvedModel

	defer func() {
		duration := time.Since(start)
		if err == nil {
			tracing.SetStatus(span, nil)
			s.metrics.RecordAttempt(providerLabel, modelLabel, metrics.StatusSuccess, "", duration)
			return
		}

		errorType := classifyError(err)
		tracing.SetErrorAttributes(span, err, errorType)
		if ctx.Err() != nil {
			return
		}
		s.metrics.RecordAttempt(providerLabel, modelLabel, "failure", errorType, duration)
		if model != nil && errorType != errorTypeResolution {
			s.recordHealth(model.ProviderName, err)
		}
	}()

	model, err = routing.ResolveModelRef(ref, cfg)
	if err != nil {
		return nil, err
	}
	tracing.SetModelAttributes(span, model.ProviderName, model.ModelID, model.API)

	adapter, err := s.registry.ResolveAdapter(model)
	if err != nil {
		return nil, err
	}

	// ends the upstream request on every exit path
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("starting model attempt",
		"attempt", attempt,
		"provider", model.ProviderName,
		"model", model.ModelID,
		"api", model.API,
		"messages", len(req.Messages),
	)

	chunks, err := adapter.StreamChat(streamCtx, model, req)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for {
		var (
			chunk *providers.StreamChunk
			ok    bool
		)
		select {
		case chunk, ok = <-chunks:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if !ok {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &providers.StreamError{Provider: model.ProviderName, Message: "stream closed without completion"}
		}
		if chunk.Error != nil {
			return nil, chunk.Error
		}

		if chunk.Delta != "" {
			text.WriteString(chunk.Delta)
			if !s.send(ctx, events, Event{Type: EventDelta, Content: chunk.Delta}) {
				return nil, ctx.Err()
			}
		}

		if chunk.Done {
			if chunk.Usage != nil {
				tracing.SetTokenAttributes(span, chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens, chunk.Usage.TotalTokens)
			}
			s.recordHealth(model.ProviderName, nil)
			return &attemptResult{model: model, text: text.String(), usage: chunk.Usage}, nil
		}
	}
}

func (s *Service) recordHealth(provider string, err error) {
	if s.health == nil {
		return
	}
	if err == nil {
		s.health.RecordSuccess(provider)
	} else {
		s.health.RecordFailure(provider, err)
	}
	s.metrics.UpdateProviderHealth(provider, s.health.Get(provider).Healthy)
}

func (s *Service) recordUsage(ctx context.Context, sessionID string, attempt int, result *attemptResult, logger *slog.Logger) {
	if result.usage == nil {
		return
	}
	model := result.model
	s.metrics.RecordTokens(model.ProviderName, model.ModelID, result.usage.PromptTokens, result.usage.CompletionTokens)

	if s.usage == nil {
		return
	}
	rec := &usage.Record{
		SessionID:        sessionID,
		Provider:         model.ProviderName,
		Model:            model.ModelID,
		API:              model.API,
		Attempt:          attempt,
		PromptTokens:     result.usage.PromptTokens,
		CompletionTokens: result.usage.CompletionTokens,
		TotalTokens:      result.usage.TotalTokens,
	}
	if err := s.usage.Record(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("failed to record usage", "provider", model.ProviderName, "model", model.ModelID, "error", err)
	}
}

// send delivers ev unless ctx ends first.
func (s *Service) send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
