package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/pkg/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/HerbHall/studyforge/internal/generation"

// State is a pipeline stage.
type State int

const (
	StateBuilt State = iota
	StateInvoked
	StateExtracted
	StateValidated
	StateFiltered
	StateFallback
	StateDone
)

var stateNames = [...]string{"built", "invoked", "extracted", "validated", "filtered", "fallback", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Fallback reasons reported in metrics and logs.
const (
	reasonBackendUnavailable = "backend_unavailable"
	reasonNoJSON             = "no_json"
	reasonSchemaViolation    = "schema_violation"
	reasonInsufficientItems  = "insufficient_items"
)

// Pipeline runs generate-validate-fallback for one content kind.
type Pipeline struct {
	invoker  llm.Invoker
	fallback *FallbackTable
	callOpts []llm.CallOption
	newRand  func() *rand.Rand
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithCallOptions sets sampling options applied to every backend call.
func WithCallOptions(opts ...llm.CallOption) Option {
	return func(p *Pipeline) { p.callOpts = append(p.callOpts, opts...) }
}

// WithRandSource replaces the per-request random source constructor.
func WithRandSource(fn func() *rand.Rand) Option {
	return func(p *Pipeline) { p.newRand = fn }
}

// NewPipeline creates a pipeline. A nil invoker makes every run fall back.
func NewPipeline(invoker llm.Invoker, fallback *FallbackTable, opts ...Option) *Pipeline {
	p := &Pipeline{
		invoker:  invoker,
		fallback: fallback,
		newRand:  NewRand,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Kind returns the content kind this pipeline serves.
func (p *Pipeline) Kind() Kind { return p.fallback.Kind() }

// Run produces a result for req. It only fails with ErrInvalidRequest;
// every other failure resolves to fallback content. Extra call options
// (for example a stream callback) apply to this run only.
func (p *Pipeline) Run(ctx context.Context, req Request, opts ...llm.CallOption) (Result, error) {
	if req.Kind() == "" {
		return Result{}, fmt.Errorf("%w: zero request", ErrInvalidRequest)
	}
	if req.Kind() != p.fallback.Kind() {
		return Result{}, fmt.Errorf("%w: %s request sent to %s pipeline", ErrInvalidRequest, req.Kind(), p.fallback.Kind())
	}

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "generation.run", trace.WithAttributes(
		attribute.String("generation.kind", string(req.Kind())),
		attribute.Int("generation.desired_count", req.DesiredCount()),
		attribute.Int("generation.subject_length", len(req.Subject())),
	))
	defer span.End()

	r := &run{
		p:      p,
		req:    req,
		rng:    p.newRand(),
		logger: p.logger.With(zap.String("kind", string(req.Kind()))),
	}

	items, backend, err := r.generate(ctx, opts)
	var res Result
	switch {
	case err != nil:
		res = r.fallbackAll(ctx, reasonFor(err), err)
	case len(items) < req.DesiredCount():
		res = r.topUp(ctx, items, backend)
	default:
		r.advance(StateDone)
		res = Result{Items: items[:req.DesiredCount()], BackendUsed: &backend}
		generationTotal.WithLabelValues(string(req.Kind()), "model").Inc()
	}
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Bool("generation.used_fallback", res.UsedFallback),
		attribute.Int("generation.items", len(res.Items)),
		attribute.String("generation.backend", res.Backend()),
	)
	r.logger.Debug("pipeline done",
		zap.Bool("used_fallback", res.UsedFallback),
		zap.Int("items", len(res.Items)),
		zap.String("backend", res.Backend()),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// run carries the state of one pipeline execution.
type run struct {
	p      *Pipeline
	req    Request
	rng    *rand.Rand
	state  State
	logger *zap.Logger
}

func (r *run) advance(s State) {
	r.logger.Debug("pipeline state", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
}

// generate runs Built through Filtered. A nil error means at least one
// valid item was produced.
func (r *run) generate(ctx context.Context, extra []llm.CallOption) ([]StructuredItem, string, error) {
	if r.p.invoker == nil {
		return nil, "", fmt.Errorf("no invoker configured: %w", ErrBackendUnavailable)
	}
	prompt := BuildPrompt(r.req)

	opts := make([]llm.CallOption, 0, len(r.p.callOpts)+len(extra))
	opts = append(opts, r.p.callOpts...)
	opts = append(opts, extra...)

	reply, err := r.invoke(ctx, prompt, opts)
	if err != nil {
		return nil, "", err
	}
	r.advance(StateInvoked)

	payload, err := r.extract(ctx, reply.Text)
	if err != nil {
		return nil, reply.Backend, err
	}
	r.advance(StateExtracted)

	items, err := r.validate(ctx, payload)
	if err != nil {
		return nil, reply.Backend, err
	}
	r.advance(StateValidated)

	r.filter(ctx, items)
	r.advance(StateFiltered)
	return items, reply.Backend, nil
}

func (r *run) invoke(ctx context.Context, prompt string, opts []llm.CallOption) (llm.Reply, error) {
	ctx, span := r.p.tracer.Start(ctx, "generation.invoke")
	defer span.End()

	reply, err := r.p.invoker.Invoke(ctx, prompt, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backends unavailable")
		if !errors.Is(err, ErrBackendUnavailable) {
			err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		return llm.Reply{}, fmt.Errorf("invoke: %w", err)
	}
	span.SetAttributes(
		attribute.String("generation.backend", reply.Backend),
		attribute.String("generation.model", reply.Model),
		attribute.Int64("generation.elapsed_ms", reply.Elapsed.Milliseconds()),
	)
	return reply, nil
}

func (r *run) extract(ctx context.Context, text string) (ExtractedPayload, error) {
	_, span := r.p.tracer.Start(ctx, "generation.extract")
	defer span.End()

	// Chat answers are prose; the reply is the payload.
	if r.req.Kind() == KindChatAnswer {
		return ExtractedPayload{Value: text}, nil
	}
	payload, err := Extract(text)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("no JSON in model reply", zap.Int("reply_chars", len(text)))
		return ExtractedPayload{}, fmt.Errorf("extract: %w", err)
	}
	return payload, nil
}

func (r *run) validate(ctx context.Context, payload ExtractedPayload) ([]StructuredItem, error) {
	_, span := r.p.tracer.Start(ctx, "generation.validate")
	defer span.End()

	items, errs := Validate(r.req.Kind(), payload)
	for _, err := range errs {
		r.logger.Warn("dropping invalid item", zap.Error(err))
	}
	if r.req.Kind() == KindQuizBatch {
		items = r.allowedTypes(items)
	}
	span.SetAttributes(attribute.Int("generation.valid", len(items)), attribute.Int("generation.rejected", len(errs)))
	if len(items) == 0 {
		span.SetStatus(codes.Error, "no valid items")
		if len(errs) == 0 {
			return nil, fmt.Errorf("validate: %w: no items in payload", ErrSchemaViolation)
		}
		return nil, fmt.Errorf("validate: %w", errors.Join(errs...))
	}
	return items, nil
}

// allowedTypes drops questions of types the request did not ask for.
func (r *run) allowedTypes(items []StructuredItem) []StructuredItem {
	out := items[:0:0]
	for _, it := range items {
		if q, ok := it.(*QuizQuestion); ok && !r.req.Allows(q.Type) {
			r.logger.Warn("dropping question of unrequested type", zap.String("type", string(q.Type)))
			continue
		}
		out = append(out, it)
	}
	return out
}

// filter logs items that look off-topic. They are kept.
func (r *run) filter(ctx context.Context, items []StructuredItem) {
	_, span := r.p.tracer.Start(ctx, "generation.filter")
	defer span.End()

	subject := r.req.Subject()
	if r.req.Context() != "" && r.req.Kind() == KindQuizBatch {
		subject = r.req.Context()
	}
	misses := 0
	for _, it := range items {
		if !IsRelevant(it, subject) {
			misses++
			body, _ := relevanceText(it)
			r.logger.Warn("item may not be relevant, keeping it", zap.String("text", Truncate(body, 100)))
		}
	}
	span.SetAttributes(attribute.Int("generation.irrelevant", misses))
}

func (r *run) buildFallback(ctx context.Context, count int) []StructuredItem {
	_, span := r.p.tracer.Start(ctx, "generation.fallback")
	defer span.End()

	rule, items := r.p.fallback.Build(FallbackInput{
		Subject: r.req.Subject(),
		Count:   count,
		Types:   r.req.ItemTypes(),
		Rand:    r.rng,
	})
	span.SetAttributes(attribute.String("generation.fallback_rule", rule), attribute.Int("generation.items", len(items)))
	r.logger.Debug("fallback built", zap.String("rule", rule), zap.Int("items", len(items)))
	return items
}

func (r *run) fallbackAll(ctx context.Context, reason string, cause error) Result {
	r.advance(StateFallback)
	r.logger.Warn("using fallback content", zap.String("reason", reason), zap.Error(cause))
	fallbackTotal.WithLabelValues(string(r.req.Kind()), reason).Inc()
	generationTotal.WithLabelValues(string(r.req.Kind()), "fallback").Inc()

	items := r.buildFallback(ctx, r.req.DesiredCount())
	if len(items) > r.req.DesiredCount() {
		items = items[:r.req.DesiredCount()]
	}
	r.advance(StateDone)
	return Result{Items: items, UsedFallback: true}
}

// topUp fills a short batch with fallback items not already present.
func (r *run) topUp(ctx context.Context, items []StructuredItem, backend string) Result {
	need := r.req.DesiredCount() - len(items)
	r.advance(StateFallback)
	r.logger.Warn("topping up short batch from fallback",
		zap.Error(fmt.Errorf("%w: have %d, want %d", ErrInsufficientValidItems, len(items), r.req.DesiredCount())),
	)
	fallbackTotal.WithLabelValues(string(r.req.Kind()), reasonInsufficientItems).Inc()
	generationTotal.WithLabelValues(string(r.req.Kind()), "topped_up").Inc()

	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[itemKey(it)] = true
	}
	out := append([]StructuredItem(nil), items...)
	for _, it := range r.buildFallback(ctx, r.req.DesiredCount()) {
		if need == 0 {
			break
		}
		if k := itemKey(it); !seen[k] {
			seen[k] = true
			out = append(out, it)
			need--
		}
	}
	r.advance(StateDone)
	return Result{Items: out, UsedFallback: true, BackendUsed: &backend}
}

func itemKey(it StructuredItem) string {
	body, extra := relevanceText(it)
	switch it.(type) {
	case *CourseRecord:
		return strings.ToLower(body)
	case *QuizQuestion:
		return strings.ToLower(body)
	}
	return strings.ToLower(body + "|" + extra)
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrBackendUnavailable):
		return reasonBackendUnavailable
	case errors.Is(err, ErrNoParsableJSON):
		return reasonNoJSON
	default:
		return reasonSchemaViolation
	}
}
