package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhouzirui/haven/backend/internal/analysis/crisis"
	"github.com/zhouzirui/haven/backend/internal/analysis/emotion"
	"github.com/zhouzirui/haven/backend/internal/model/chat"
	"github.com/zhouzirui/haven/backend/internal/observability/metrics"
	"github.com/zhouzirui/haven/backend/internal/service/ai"
	"github.com/zhouzirui/haven/backend/internal/service/prompt"
	"github.com/zhouzirui/haven/backend/internal/service/reply"
	"github.com/zhouzirui/haven/backend/internal/store"
	"github.com/zhouzirui/haven/backend/pkg/logging"
)

var tracer = otel.Tracer("haven.chat")

// ValidationError is a user-correctable problem with a turn request. Nothing
// is persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ErrEmptyMessage rejects empty or whitespace-only messages.
var ErrEmptyMessage = &ValidationError{Field: "message", Reason: "Empty message"}

// Default option values.
const (
	DefaultGenerationTimeout = 15 * time.Second
)

type (
	// CrisisDetector flags text that must get a fixed safety reply.
	CrisisDetector interface {
		Detect(text string) bool
	}
	// EmotionClassifier labels a message with an emotion category.
	EmotionClassifier interface {
		Classify(text string) emotion.Category
	}
	// ReplySelector picks a canned reply for a category.
	ReplySelector interface {
		Choose(category emotion.Category) string
	}
	// PromptComposer renders the generation prompt.
	PromptComposer interface {
		Compose(context []chat.Turn, userMessage string) string
	}
	// Generator performs one bounded generation attempt.
	Generator interface {
		Generate(ctx context.Context, prompt string) ai.Result
	}
)

// Deps are the collaborators of the turn pipeline. Store and Generator are
// required; the rest fall back to the built-in tables.
type Deps struct {
	Store      store.Store
	Detector   CrisisDetector
	Classifier EmotionClassifier
	Selector   ReplySelector
	Composer   PromptComposer
	Generator  Generator
	Metrics    *metrics.ChatMetrics
	Logger     *logging.Logger
}

// Options sizes the context windows and bounds generation.
type Options struct {
	// ContextLimit is the window returned to the client.
	ContextLimit int
	// PromptContextLimit is the window fed to the generator.
	PromptContextLimit int
	GenerationTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.ContextLimit <= 0 {
		o.ContextLimit = store.DefaultContextLimit
	}
	if o.PromptContextLimit <= 0 {
		o.PromptContextLimit = store.DefaultPromptContextLimit
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = DefaultGenerationTimeout
	}
	return o
}

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	Reply   string           `json:"reply"`
	Emotion emotion.Category `json:"emotion"`
	Context []chat.Turn      `json:"context"`
	// Degraded is set when the turn completed but part of it could not be
	// read from or written to the store.
	Degraded bool `json:"degraded,omitempty"`
}

// Service runs the turn pipeline. It holds no per-session state and is safe
// for concurrent use.
type Service struct {
	store      store.Store
	detector   CrisisDetector
	classifier EmotionClassifier
	selector   ReplySelector
	composer   PromptComposer
	generator  Generator
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
	opts       Options
}

// NewService wires the pipeline.
func NewService(deps Deps, opts Options) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("chat: store is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("chat: generator is required")
	}

	s := &Service{
		store:      deps.Store,
		detector:   deps.Detector,
		classifier: deps.Classifier,
		selector:   deps.Selector,
		composer:   deps.Composer,
		generator:  deps.Generator,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		opts:       opts.withDefaults(),
	}
	if s.detector == nil {
		s.detector = crisis.NewDetector(crisis.DefaultPhrases)
	}
	if s.classifier == nil {
		s.classifier = emotion.NewClassifier(emotion.DefaultKeywords())
	}
	if s.selector == nil {
		s.selector = reply.NewSelector(reply.DefaultPools())
	}
	if s.composer == nil {
		s.composer = prompt.NewComposer("")
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s, nil
}

// CreateSession mints an opaque session id. Sessions have no record of their
// own; the id only groups messages.
func (s *Service) CreateSession(_ context.Context) string {
	return uuid.NewString()
}

// History returns the newest limit messages of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	if limit <= 0 {
		limit = s.opts.ContextLimit
	}
	turns, err := s.store.Recent(ctx, normalizeSessionID(sessionID), limit)
	if err != nil {
		s.metrics.ObserveStorageError("recent")
		return nil, err
	}
	return nonNil(turns), nil
}

// SubmitTurn records the user message, produces a reply and records it.
//
// A failure to store the user message fails the turn with the *store.StorageError.
// Later storage failures do not: the reply is still returned with Degraded set.
// Generation failures are always answered from the template pools.
func (s *Service) SubmitTurn(ctx context.Context, sessionID, message string) (TurnResult, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	sessionID = normalizeSessionID(sessionID)

	ctx, span := tracer.Start(ctx, "chat.submit_turn")
	defer span.End()
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	start := time.Now()
	log := s.logger.With("session_id", sessionID)

	if _, err := s.store.Append(ctx, sessionID, chat.RoleUser, text); err != nil {
		s.metrics.ObserveStorageError("append_user")
		span.RecordError(err)
		span.SetStatus(codes.Error, "append user message")
		log.Error("failed to persist user message", "error", err)
		return TurnResult{}, err
	}

	var result TurnResult
	var outcome string
	if s.detector.Detect(text) {
		result, outcome = s.crisisTurn(ctx, log, sessionID)
	} else {
		result, outcome = s.supportTurn(ctx, log, sessionID, text)
	}

	span.SetAttributes(
		attribute.String("chat.emotion", result.Emotion.String()),
		attribute.String("chat.outcome", outcome),
		attribute.Bool("chat.degraded", result.Degraded),
	)
	s.metrics.ObserveTurn(result.Emotion.String(), outcome, time.Since(start).Seconds())
	log.Info("turn completed",
		"emotion", result.Emotion.String(),
		"outcome", outcome,
		"degraded", result.Degraded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) crisisTurn(ctx context.Context, log *logging.Logger, sessionID string) (TurnResult, string) {
	result := TurnResult{
		Reply:   s.selector.Choose(emotion.Crisis),
		Emotion: emotion.Crisis,
	}

	if !s.appendBot(ctx, log, sessionID, result.Reply) {
		result.Degraded = true
	}

	turns, err := s.store.Recent(ctx, sessionID, s.opts.ContextLimit)
	if err != nil {
		s.metrics.ObserveStorageError("recent")
		log.Error("failed to load context window", "error", err)
		result.Degraded = true
	}
	result.Context = nonNil(turns)
	return result, metrics.OutcomeCrisis
}

func (s *Service) supportTurn(ctx context.Context, log *logging.Logger, sessionID, text string) (TurnResult, string) {
	result := TurnResult{Emotion: s.classifier.Classify(text)}

	// Both windows end at the user message just stored; one read serves both.
	window, err := s.store.Recent(ctx, sessionID, max(s.opts.ContextLimit, s.opts.PromptContextLimit))
	if err != nil {
		s.metrics.ObserveStorageError("recent")
		log.Error("failed to load context window", "error", err)
		result.Degraded = true
	}
	result.Context = nonNil(tail(window, s.opts.ContextLimit))
	promptContext := tail(window, s.opts.PromptContextLimit)

	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	generated := s.generator.Generate(genCtx, s.composer.Compose(promptContext, text))
	cancel()

	outcome := metrics.OutcomeGenerated
	if generated.OK() {
		result.Reply = generated.Text
	} else {
		outcome = metrics.OutcomeFallback
		s.metrics.ObserveGenerationFailure(string(generated.Failure.Kind))
		log.Warn("generation failed, using template reply",
			"kind", string(generated.Failure.Kind),
			"provider", generated.Failure.Provider,
			"error", generated.Failure.Error(),
		)
		result.Reply = s.selector.Choose(result.Emotion)
	}

	if !s.appendBot(ctx, log, sessionID, result.Reply) {
		result.Degraded = true
	}
	return result, outcome
}

// appendBot stores the reply once; a failure is logged and reported, never retried.
// The write outlives a client that disconnects mid-turn so the user message is
// not left unanswered.
func (s *Service) appendBot(ctx context.Context, log *logging.Logger, sessionID, text string) bool {
	if _, err := s.store.Append(context.WithoutCancel(ctx), sessionID, chat.RoleBot, text); err != nil {
		s.metrics.ObserveStorageError("append_bot")
		log.Error("failed to persist bot reply", "error", err)
		return false
	}
	return true
}

func normalizeSessionID(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return chat.DefaultSessionID
	}
	return sessionID
}

func tail(turns []chat.Turn, n int) []chat.Turn {
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

func nonNil(turns []chat.Turn) []chat.Turn {
	if turns == nil {
		return []chat.Turn{}
	}
	return turns
}
