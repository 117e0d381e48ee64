package engine

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/crankplan/internal/httpclient"
	"github.com/torosent/crankplan/internal/metrics"
	"github.com/torosent/crankplan/internal/tracing"
	"github.com/torosent/crankplan/pkg/plan"
)

// DefaultTimeout bounds every HTTP sample unless WithHTTPClient says otherwise.
const DefaultTimeout = 30 * time.Second

// Listener observes every recorded sample. OnSample is called from the
// virtual user goroutines and must be safe for concurrent use.
type Listener interface {
	OnSample(s metrics.Sample)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(s metrics.Sample)

func (f ListenerFunc) OnSample(s metrics.Sample) { f(s) }

// Engine executes test plans built with package plan. It implements
// plan.Delegate; handles it returns are only meaningful to the same engine
// type.
type Engine struct {
	logger    *zap.Logger
	client    *http.Client
	tracer    *tracing.Provider
	listeners []Listener
	collector func() *metrics.Collector
	seed      int64
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHTTPClient replaces the client used by HTTP samplers.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

// WithTracing records a span per sample through p.
func WithTracing(p *tracing.Provider) Option {
	return func(e *Engine) {
		if p != nil {
			e.tracer = p
		}
	}
}

// WithListener adds a sample listener.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// WithCollector makes runs record into c instead of a fresh collector, so
// progress can be observed while a run is in flight. c should not be shared
// between concurrent runs.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Engine) {
		if c != nil {
			e.collector = func() *metrics.Collector { return c }
		}
	}
}

// WithSeed makes random timers deterministic.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		client: httpclient.NewClient(DefaultTimeout),
		tracer: tracing.Noop(),
		now:    time.Now,
	}
	e.collector = func() *metrics.Collector {
		return metrics.NewCollector(metrics.WithClock(e.now))
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.seed == 0 {
		e.seed = time.Now().UnixNano()
	}
	return e
}

var _ plan.Delegate = (*Engine)(nil)

func (e *Engine) Materialize(kind plan.Kind, args plan.Args) (plan.Native, error) {
	return materialize(kind, args)
}

func (e *Engine) SetChildren(h plan.Native, children []plan.Native) (plan.Native, error) {
	parent, err := asElement(h)
	if err != nil {
		return nil, err
	}
	out := parent.clone()
	out.children = make([]*element, 0, len(children))
	for _, c := range children {
		child, err := asElement(c)
		if err != nil {
			return nil, err
		}
		out.children = append(out.children, child)
	}
	return out, nil
}

func (e *Engine) Mutate(h plan.Native, m plan.Mutation) (plan.Native, error) {
	el, err := asElement(h)
	if err != nil {
		return nil, err
	}
	return el.mutate(m)
}

// Run executes the plan rooted at root. Thread groups run in three phases:
// setup groups, then the regular groups, then teardown groups. Groups of the
// same phase run concurrently.
func (e *Engine) Run(ctx context.Context, root plan.Native) (plan.Result, error) {
	el, err := asElement(root)
	if err != nil {
		return nil, executionError(err)
	}
	return e.run(ctx, el)
}
