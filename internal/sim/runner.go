// Package sim drives a network engine against a simulation clock and
// feeds its results to logs, metrics and traces.
package sim

import (
	"context"
	"iter"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/model"
	"github.com/signalsfoundry/wsn-simulator/timectrl"
)

// StepRecorder receives one sample per step.
type StepRecorder interface {
	ObserveStep(observability.StepSample)
}

// TopologyRecorder receives the component partition of every step.
type TopologyRecorder interface {
	SetComponents(components [][]int)
	ObserveAnalysis(d time.Duration)
}

// Summary describes a finished run.
type Summary struct {
	Steps      int
	LinksUp    int // in the last step
	Components int // in the last step
	SimTime    time.Time
	Elapsed    time.Duration
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l logging.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics records every step on m.
func WithMetrics(m StepRecorder) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithTopologyMetrics records the connectivity graph of every step on m.
func WithTopologyMetrics(m TopologyRecorder) RunnerOption {
	return func(r *Runner) { r.topology = m }
}

// WithTracer wraps every step in a span from t.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithLogEvery logs a step summary every n steps; 0 disables it.
func WithLogEvery(n int) RunnerOption {
	return func(r *Runner) { r.logEvery = n }
}

// WithTelemetry keeps per-node telemetry in ts.
func WithTelemetry(ts *TelemetryState) RunnerOption {
	return func(r *Runner) { r.telemetry = ts }
}

// Runner pulls steps from a NetworkEngine, one per clock tick.
type Runner struct {
	engine *core.NetworkEngine
	clock  *timectrl.TimeController

	log       logging.Logger
	metrics   StepRecorder
	topology  TopologyRecorder
	tracer    trace.Tracer
	telemetry *TelemetryState
	logEvery  int

	// set for the duration of Run
	ctx     context.Context
	runLog  logging.Logger
	next    func() (int, *core.StepResult, bool)
	summary Summary
}

// NewRunner binds engine to clock. Each tick of the clock advances the
// engine by exactly one step.
func NewRunner(engine *core.NetworkEngine, clock *timectrl.TimeController, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine: engine,
		clock:  clock,
		log:    logging.Noop(),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	clock.AddListener(r.onTick)
	return r
}

// Run executes steps until maxSteps have run (0 means until ctx is
// done). Cancellation ends the run cleanly and is not reported as an
// error.
func (r *Runner) Run(ctx context.Context, maxSteps int) (Summary, error) {
	ctx, log := logging.WithRunLogger(ctx, r.log)
	next, stop := iter.Pull2(r.engine.Steps())
	defer stop()

	r.ctx, r.runLog, r.next, r.summary = ctx, log, next, Summary{}
	defer func() { r.ctx, r.runLog, r.next = nil, nil, nil }()

	log.Info(ctx, "simulation started",
		logging.Int("nodes", len(r.engine.Nodes())),
		logging.String("loss", r.engine.Model().Name()),
		logging.Int("max_steps", maxSteps),
		logging.String("mode", r.clock.Mode.String()),
		logging.Duration("tick", r.clock.Tick),
	)

	start := time.Now()
	err := r.clock.Run(ctx, maxSteps)
	r.summary.Elapsed = time.Since(start)
	r.summary.SimTime = r.clock.Now()

	if err != nil && ctx.Err() == nil {
		return r.summary, err
	}
	log.Info(ctx, "simulation complete",
		logging.Int("steps", r.summary.Steps),
		logging.Int("links_up", r.summary.LinksUp),
		logging.Int("components", r.summary.Components),
		logging.Duration("elapsed", r.summary.Elapsed),
		logging.Duration("sim_elapsed", r.clock.Elapsed()),
	)
	return r.summary, nil
}

func (r *Runner) onTick(simTime time.Time) {
	if r.next == nil {
		return
	}
	ctx, span := r.tracer.Start(r.ctx, "network.step")
	defer span.End()

	began := time.Now()
	idx, res, ok := r.next()
	if !ok {
		span.SetStatus(codes.Error, "step sequence ended")
		return
	}
	elapsed := time.Since(began)

	analysed := time.Now()
	components := core.NewTopology(res).Components()
	if r.topology != nil {
		r.topology.SetComponents(components)
		r.topology.ObserveAnalysis(time.Since(analysed))
	}

	sample := Sample(res, elapsed)
	if r.metrics != nil {
		r.metrics.ObserveStep(sample)
	}
	if r.telemetry != nil {
		r.telemetry.Update(res)
	}

	span.SetAttributes(
		attribute.Int("wsn.step", idx),
		attribute.Int("wsn.links_up", sample.LinksUp),
		attribute.Int("wsn.components", len(components)),
	)

	r.summary.Steps++
	r.summary.LinksUp = sample.LinksUp
	r.summary.Components = len(components)

	if r.logEvery > 0 && (idx+1)%r.logEvery == 0 {
		r.runLog.Info(ctx, "step summary",
			logging.Step(idx),
			logging.String("sim_time", simTime.Format(time.RFC3339Nano)),
			logging.Int("links_up", sample.LinksUp),
			logging.Int("components", len(components)),
			logging.Float64("mean_loss_db", meanLoss(sample.LossDB)),
		)
	}
}

// Sample converts a step result into a metrics sample.
func Sample(res *core.StepResult, d time.Duration) observability.StepSample {
	n := res.Size()
	s := observability.StepSample{
		Nodes:    n,
		Duration: d,
		Quality:  make(map[string]int),
	}
	if n > 1 {
		s.LossDB = make([]float64, 0, n*(n-1))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			s.LossDB = append(s.LossDB, res.Loss[i][j])
			if res.Status[i][j] == model.LinkUp {
				s.LinksUp++
				s.Quality[string(model.ClassifyMargin(res.Margin[i][j]))]++
			}
		}
	}
	return s
}

func meanLoss(losses []float64) float64 {
	if len(losses) == 0 {
		return 0
	}
	return stat.Mean(losses, nil)
}
