package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/torosent/crankplan/internal/extractor"
	"github.com/torosent/crankplan/internal/feeder"
	"github.com/torosent/crankplan/internal/metrics"
	"github.com/torosent/crankplan/internal/output"
	"github.com/torosent/crankplan/internal/runner"
	"github.com/torosent/crankplan/internal/tracing"
	"github.com/torosent/crankplan/internal/variables"
	"github.com/torosent/crankplan/pkg/plan"
)

// maxBodyBytes caps how much of a response body is kept for extractors and
// assertions; the rest is drained and counted.
const maxBodyBytes = 10 << 20

// run is the state of one Engine.Run call.
type run struct {
	e         *Engine
	id        ulid.ULID
	prog      *program
	collector *metrics.Collector
	logger    *zap.Logger
	sinks     []*output.JTLWriter
	active    int64

	sinkErrOnce sync.Once
	sinkErr     error
}

func (e *Engine) run(ctx context.Context, root *element) (res plan.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, executionError(panicError(r))
		}
	}()

	prog, err := compile(root)
	if err != nil {
		return nil, executionError(err)
	}

	r := &run{
		e:         e,
		id:        ulid.Make(),
		prog:      prog,
		collector: e.collector(),
	}
	r.logger = e.logger.With(zap.String("run_id", r.id.String()))

	if err := r.openSinks(); err != nil {
		r.closeSinks()
		return nil, executionError(err)
	}

	r.logger.Info("run started",
		zap.Int("setup_groups", len(prog.phases[phaseSetup])),
		zap.Int("groups", len(prog.phases[phaseMain])),
		zap.Int("teardown_groups", len(prog.phases[phaseTeardown])))

	started := e.now()
	r.collector.Start()
	runErr := r.execute(ctx)
	elapsed := e.now().Sub(started)

	if cerr := r.closeSinks(); cerr != nil && runErr == nil {
		runErr = cerr
	}
	if runErr == nil {
		runErr = r.sinkErr
	}
	if runErr != nil {
		return nil, executionError(runErr)
	}

	result := newResult(r.id, started, r.collector.Snapshot(elapsed))
	if err := r.writeDashboards(result); err != nil {
		return nil, executionError(err)
	}

	r.logger.Info("run finished",
		zap.Duration("duration", elapsed),
		zap.Int64("samples", result.snapshot.Overall.Total),
		zap.Int64("errors", result.snapshot.Overall.Failures))
	return result, nil
}

func (r *run) openSinks() error {
	paths := append([]string(nil), r.prog.jtlPaths...)
	for _, dir := range r.prog.htmlDirs {
		paths = append(paths, filepath.Join(dir, output.ReportJTLName))
	}
	for _, p := range paths {
		w, err := output.OpenJTL(p)
		if err != nil {
			return err
		}
		r.sinks = append(r.sinks, w)
		r.logger.Debug("results file opened", zap.String("path", p))
	}
	return nil
}

func (r *run) closeSinks() error {
	var errs []error
	for _, w := range r.sinks {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.sinks = nil
	return errors.Join(errs...)
}

func (r *run) writeDashboards(result *Result) error {
	for _, dir := range r.prog.htmlDirs {
		rep := output.Report{
			RunID:       r.id.String(),
			GeneratedAt: r.e.now(),
			Snapshot:    result.snapshot,
		}
		if err := output.WriteHTMLDashboard(dir, rep); err != nil {
			return fmt.Errorf("html report %s: %w", dir, err)
		}
		r.logger.Info("html report written", zap.String("dir", dir))
	}
	return nil
}

// execute runs the phases in order, stopping at the first failing phase.
func (r *run) execute(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for p, groups := range r.prog.phases {
		if len(groups) == 0 {
			continue
		}
		if err := r.runPhase(ctx, cancel, phase(p), groups); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) runPhase(ctx context.Context, cancel context.CancelFunc, p phase, groups []*group) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, g := range groups {
		wg.Add(1)
		go func(g *group) {
			defer wg.Done()
			if err := r.runGroup(ctx, p, g); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
			}
		}(g)
	}
	wg.Wait()
	return firstErr
}

func (r *run) runGroup(ctx context.Context, p phase, g *group) error {
	logger := r.logger.With(zap.String("thread_group", g.name), zap.Stringer("phase", p))
	logger.Info("thread group started",
		zap.Int("threads", g.threads),
		zap.Int("iterations", g.iterations),
		zap.Duration("ramp_up", g.rampUp),
		zap.Duration("hold", g.hold))

	atomic.AddInt64(&r.active, int64(g.threads))
	defer atomic.AddInt64(&r.active, -int64(g.threads))

	exec := &groupRun{r: r, g: g, users: make([]*user, g.threads), logger: logger}
	opts := runner.Options{
		Threads:     g.threads,
		Iterations:  g.iterations,
		RampUp:      g.rampUp,
		StopOnError: true,
	}
	if g.kind == plan.KindThreadGroupWithRampUpAndHold {
		opts.Duration = g.rampUp + g.hold
	}
	if len(g.steps) > 0 || len(g.datasets) > 0 || len(r.prog.datasets) > 0 {
		opts.Iteration = exec
	}

	res := runner.New(opts).Run(ctx)
	logger.Info("thread group finished",
		zap.Int64("iterations", res.Iterations),
		zap.Duration("duration", res.Duration))
	if res.Err != nil {
		return fmt.Errorf("thread group %q: %w", g.name, res.Err)
	}
	return nil
}

// user is the state of one virtual user, touched only by its own goroutine.
type user struct {
	vars *variables.MemoryStore
	rng  *rand.Rand
	name string
}

type groupRun struct {
	r      *run
	g      *group
	users  []*user
	logger *zap.Logger
}

func (gr *groupRun) user(vu int) *user {
	if u := gr.users[vu]; u != nil {
		return u
	}
	seed := gr.r.e.seed + int64(gr.g.index)*1_000_003 + int64(vu)
	u := &user{
		vars: variables.NewStore(gr.r.prog.vars),
		rng:  rand.New(rand.NewSource(seed)),
		name: fmt.Sprintf("%s %d-%d", gr.g.name, gr.g.index+1, vu+1),
	}
	gr.users[vu] = u
	return u
}

// Do runs one iteration of a virtual user. Sample failures are recorded, not
// returned; only internal failures end the iteration with an error.
func (gr *groupRun) Do(ctx context.Context, vu, iteration int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError(rec)
		}
	}()

	u := gr.user(vu)
	if err := advance(ctx, u, gr.r.prog.datasets); err != nil {
		return err
	}
	if err := advance(ctx, u, gr.g.datasets); err != nil {
		return err
	}
	for _, st := range gr.g.steps {
		if ctx.Err() != nil {
			return nil
		}
		if err := gr.execute(ctx, u, st, vu, iteration); err != nil {
			return err
		}
	}
	return nil
}

// advance applies the next row of every dataset to the user's variables.
func advance(ctx context.Context, u *user, datasets []*feeder.CSVFeeder) error {
	for _, ds := range datasets {
		rec, err := ds.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("csv data set %s: %w", ds.Path(), err)
		}
		u.vars.Apply(rec)
	}
	return nil
}

func (gr *groupRun) execute(ctx context.Context, u *user, st *step, vu, iteration int) error {
	if err := advance(ctx, u, st.datasets); err != nil {
		return err
	}

	if !pause(ctx, u.rng, st.scope.timers) {
		return nil
	}

	label := u.vars.Expand(st.el.name)
	info := tracing.SampleInfo{
		Label:       label,
		Kind:        st.el.kind.String(),
		ThreadGroup: gr.g.name,
		Thread:      vu,
		Iteration:   iteration,
	}
	if st.request != nil {
		info.Method = st.request.Method()
		info.URL = u.vars.Expand(st.el.url)
	}
	spanCtx, span := gr.r.e.tracer.StartSample(ctx, info)

	var (
		sample metrics.Sample
		body   []byte
	)
	if st.request != nil {
		sample, body = gr.sampleHTTP(spanCtx, u, st)
	} else {
		sample, body = gr.sampleDummy(u, st)
	}
	sample.Label = label
	sample.ThreadName = u.name
	sample.GroupThreads = gr.g.threads
	sample.AllThreads = int(atomic.LoadInt64(&gr.r.active))

	if ctx.Err() != nil && errors.Is(sample.Err, ctx.Err()) {
		// Aborted by cancellation, not a real response.
		tracing.EndSpan(span, ctx.Err())
		return nil
	}

	if len(st.scope.extractors) > 0 {
		u.vars.Apply(extractor.ExtractAll(body, st.scope.extractors, gr.logger))
	}
	if sample.Err == nil {
		if failed := checkAssertions(body, st.scope.assertions); failed != nil {
			sample.Err = failed
			sample.Message = failed.Error()
		}
	}

	tracing.EndSpan(span, sample.Err, attribute.String("crankplan.response_code", sample.Code))
	if sample.Err != nil {
		gr.logger.Debug("sample failed",
			zap.String("label", label),
			zap.String("code", sample.Code),
			zap.Error(sample.Err))
	}
	gr.r.record(sample)

	for _, child := range st.children {
		if ctx.Err() != nil {
			return nil
		}
		if err := gr.execute(ctx, u, child, vu, iteration); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) record(s metrics.Sample) {
	r.collector.Record(s)
	for _, w := range r.sinks {
		if err := w.Write(s); err != nil {
			r.sinkErrOnce.Do(func() { r.sinkErr = err })
		}
	}
	for _, l := range r.e.listeners {
		l.OnSample(s)
	}
}

// pause sleeps for the sum of every timer in scope. It reports false when ctx
// ended first.
func pause(ctx context.Context, rng *rand.Rand, timers []timer) bool {
	var total time.Duration
	for _, t := range timers {
		d := t.min
		if span := t.max - t.min; span > 0 {
			d += time.Duration(rng.Int63n(int64(span) + 1))
		}
		total += d
	}
	if total <= 0 {
		return ctx.Err() == nil
	}
	tm := time.NewTimer(total)
	defer tm.Stop()
	select {
	case <-tm.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (gr *groupRun) sampleDummy(u *user, st *step) (metrics.Sample, []byte) {
	body := []byte(u.vars.Expand(st.el.responseBody))
	return metrics.Sample{
		At:      gr.r.e.now(),
		Elapsed: st.el.responseTime,
		Latency: st.el.responseTime,
		Code:    "200",
		Message: "OK",
		Bytes:   int64(len(body)),
	}, body
}

func (gr *groupRun) sampleHTTP(ctx context.Context, u *user, st *step) (metrics.Sample, []byte) {
	start := gr.r.e.now()
	sample := metrics.Sample{At: start, URL: u.vars.Expand(st.el.url)}

	req, err := st.request.Build(ctx, u.vars)
	if err != nil {
		sample.Err = err
		sample.Code = "Non HTTP response code"
		sample.Message = err.Error()
		return sample, nil
	}
	sample.URL = req.URL.String()
	if req.ContentLength > 0 {
		sample.SentBytes = req.ContentLength
	}
	gr.r.e.tracer.InjectHTTPHeaders(ctx, req.Header)

	resp, err := gr.r.e.client.Do(req)
	if err != nil {
		sample.Elapsed = gr.r.e.now().Sub(start)
		sample.Err = err
		sample.Code = "Non HTTP response code: " + metrics.ClassifyError(err)
		sample.Message = err.Error()
		return sample, nil
	}
	defer resp.Body.Close()
	sample.Latency = gr.r.e.now().Sub(start)

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	drained, _ := io.Copy(io.Discard, resp.Body)
	sample.Elapsed = gr.r.e.now().Sub(start)
	sample.Bytes = int64(len(body)) + drained
	sample.Code = strconv.Itoa(resp.StatusCode)
	sample.Message = strings.TrimSpace(strings.TrimPrefix(resp.Status, sample.Code))
	if sample.Message == "" {
		sample.Message = http.StatusText(resp.StatusCode)
	}

	switch {
	case readErr != nil:
		sample.Err = fmt.Errorf("read response body: %w", readErr)
	case resp.StatusCode >= 400:
		sample.Err = &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return sample, body
}
