package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/converse-go/internal/config"
	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// Options parameterizes the pipeline. Each optional stage is gated
// independently so any of them can be switched off without code changes.
type Options struct {
	// Retrieval gates both the similarity query and the indexing of new
	// turns; with it off, every request runs the empty-history path.
	Retrieval bool
	// Summarization gates history compression. When off or failing, the
	// raw chronological concatenation is used instead.
	Summarization bool
	// Model gates the model invocation. When off, a clearly labeled
	// placeholder response is produced and persisted.
	Model bool
	// TopK bounds the similarity query. Must be positive.
	TopK int
	// Directive is the fixed behavior instruction included in every
	// prompt.
	Directive string
}

// OptionsFromConfig maps service configuration onto pipeline options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Retrieval:     cfg.RetrievalEnabled,
		Summarization: cfg.SummarizationEnabled,
		Model:         cfg.ModelEnabled,
		TopK:          cfg.TopK,
		Directive:     cfg.Directive,
	}
}

// Orchestrator coordinates one request through the pipeline: retrieval,
// resolution, summarization, composition, invocation, persistence. It
// holds no per-request state; concurrent requests share only the read-only
// options and the pooled capability clients.
type Orchestrator struct {
	index      VectorIndex
	resolver   *HistoryResolver
	summarizer Summarizer
	model      Model
	persister  *TurnPersister
	opts       Options
	collector  *metrics.Collector
	logger     *slog.Logger

	// Injection points for tests.
	now   func() time.Time
	newID func() string
}

// NewOrchestrator wires the pipeline. index and summarizer may be nil when
// the corresponding stage is disabled; model may be nil only when model
// invocation is disabled.
func NewOrchestrator(index VectorIndex, store TurnStore, summarizer Summarizer, model Model, opts Options, collector *metrics.Collector, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Orchestrator{
		index:      index,
		resolver:   NewHistoryResolver(store, logger),
		summarizer: summarizer,
		model:      model,
		persister:  NewTurnPersister(store, index, opts.Retrieval, logger),
		opts:       opts,
		collector:  collector,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Respond answers a user's message, augmented with relevant prior turns,
// and persists the new turn. Only a model invocation failure is returned
// as an error; every optional stage degrades instead of failing the
// request, and a persistence failure is logged after the response has
// been produced.
func (o *Orchestrator) Respond(ctx context.Context, owner, message string, role models.Role) (string, error) {
	return o.respond(ctx, owner, message, role, nil)
}

// RespondStream behaves like Respond but forwards model tokens to onToken
// as they are produced. The placeholder path delivers its text as a single
// token.
func (o *Orchestrator) RespondStream(ctx context.Context, owner, message string, role models.Role, onToken func(token string) error) (string, error) {
	if onToken == nil {
		return "", fmt.Errorf("onToken must not be nil")
	}
	return o.respond(ctx, owner, message, role, onToken)
}

func (o *Orchestrator) respond(ctx context.Context, owner, message string, role models.Role, onToken func(string) error) (string, error) {
	if role == "" {
		role = models.RoleUser
	}

	contextBlob := o.buildContext(ctx, owner, message)
	prompt := Compose(contextBlob, o.opts.Directive, models.PromptMessage{Role: role, Content: message})

	response, err := o.invoke(ctx, owner, prompt, onToken)
	if err != nil {
		return "", err
	}

	turn := models.Turn{
		ID:        o.newID(),
		Owner:     owner,
		Prompt:    message,
		Response:  response,
		CreatedAt: o.now().UTC(),
	}

	start := time.Now()
	perr := o.persister.Persist(ctx, turn)
	o.collector.Record(metrics.StagePersist, time.Since(start), perr)
	if perr != nil {
		// The turn is lost, but the user-facing value was already
		// produced; deliver the response anyway.
		o.logger.Error("turn persistence failed",
			"owner", owner, "stage", "persist", "turn_id", turn.ID, "error", perr)
	} else {
		o.logger.Debug("turn persisted", "owner", owner, "turn_id", turn.ID)
	}

	return response, nil
}

// buildContext runs the optional retrieval half of the pipeline and
// returns the context blob for the prompt, or "" when there is no usable
// history. Every failure in here degrades; none aborts the request.
func (o *Orchestrator) buildContext(ctx context.Context, owner, message string) string {
	if !o.opts.Retrieval || o.index == nil {
		return ""
	}

	start := time.Now()
	hits, err := o.index.Query(ctx, owner, message, o.opts.TopK)
	o.collector.Record(metrics.StageVectorQuery, time.Since(start), err)
	if err != nil {
		o.logger.Warn("similarity query failed, continuing without history",
			"owner", owner, "stage", "vector_query", "error", errWrap(ErrRetrieval, err))
		return ""
	}
	if len(hits) == 0 {
		return ""
	}

	start = time.Now()
	entries := o.resolver.Resolve(ctx, hits)
	o.collector.Record(metrics.StageResolve, time.Since(start), nil)
	if len(entries) == 0 {
		return ""
	}

	history := JoinHistory(entries)
	if !o.opts.Summarization || o.summarizer == nil {
		return history
	}

	start = time.Now()
	summary, err := o.summarizer.Summarize(ctx, message, history)
	o.collector.Record(metrics.StageSummarize, time.Since(start), err)
	if err != nil {
		o.logger.Warn("summarization failed, falling back to raw history",
			"owner", owner, "stage", "summarize", "error", errWrap(ErrSummarization, err))
		return history
	}
	return summary
}

func (o *Orchestrator) invoke(ctx context.Context, owner string, prompt []models.PromptMessage, onToken func(string) error) (string, error) {
	if !o.opts.Model || o.model == nil {
		response := fmt.Sprintf("Model invocation is disabled. Placeholder response %d.", o.now().UnixNano())
		if onToken != nil {
			if err := onToken(response); err != nil {
				return "", errWrap(ErrModelInvocation, err)
			}
		}
		return response, nil
	}

	start := time.Now()
	var response string
	var err error
	if onToken != nil {
		response, err = o.model.InvokeStream(ctx, prompt, owner, onToken)
	} else {
		response, err = o.model.Invoke(ctx, prompt, owner)
	}
	o.collector.Record(metrics.StageModelInvoke, time.Since(start), err)

	if err != nil {
		o.logger.Error("model invocation failed",
			"owner", owner, "stage", "model_invoke", "error", err)
		return "", errWrap(ErrModelInvocation, err)
	}
	return response, nil
}
