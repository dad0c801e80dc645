package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/config"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/internal/sim"
	"github.com/signalsfoundry/wsn-simulator/timectrl"
)

func main() {
	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

// run parses args, builds the network and drives it until the step limit
// or ctx cancellation. The final per-node table is written to stdout.
func run(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(stdout)

	configPath := fs.String("config", "", "YAML or JSON simulation config (flags override it)")
	nodes := fs.Int("nodes", 0, "number of sensor nodes")
	width := fs.Float64("width", 0, "field width in km")
	height := fs.Float64("height", 0, "field height in km")
	loss := fs.String("loss", "", "propagation model: FSPL or LNPL")
	sigma := fs.Float64("sigma", 0, "LNPL shadowing standard deviation in dB")
	gamma := fs.Float64("gamma", 0, "LNPL path-loss exponent")
	d0 := fs.Float64("d0", 0, "LNPL reference distance in km")
	radio := fs.String("radio", "", "radio profile name")
	seed := fs.Uint64("seed", 0, "random seed for placement and shadowing (default: clock)")
	mobility := fs.String("mobility", "", "mobility policy: fixed, static or random-walk")
	maxStep := fs.Float64("max-step", 0, "random-walk maximum step in km")
	steps := fs.Int("steps", 0, "number of steps to run (0 = until interrupted)")
	tick := fs.Duration("tick", 0, "wall-clock pacing per step in realtime mode")
	realtime := fs.Bool("realtime", false, "pace steps by the wall clock")
	logEvery := fs.Int("log-every", 0, "log a summary every N steps")
	scenarioPath := fs.String("scenario", "", "JSON node placement applied before the first step")
	metricsAddr := fs.String("metrics-addr", "", "HTTP address for Prometheus /metrics (disabled when empty)")
	dumpConfig := fs.String("dump-config", "", "write the effective config to this file and exit")
	printMatrix := fs.Bool("matrix", false, "print the last step's link status matrix (rows are receivers, 1 = up)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nodes":
			cfg.Nodes = *nodes
		case "width":
			cfg.Area.Width = *width
		case "height":
			cfg.Area.Height = *height
		case "loss":
			cfg.Loss = *loss
		case "sigma":
			cfg.Sigma = *sigma
		case "gamma":
			cfg.Gamma = *gamma
		case "d0":
			cfg.D0 = *d0
		case "radio":
			cfg.Radio = *radio
		case "seed":
			cfg.Seed = seed
		case "mobility":
			cfg.Mobility.Policy = *mobility
		case "max-step":
			cfg.Mobility.MaxStep = *maxStep
		case "steps":
			cfg.Run.Steps = *steps
		case "tick":
			cfg.Run.Tick = tick.String()
		case "realtime":
			cfg.Run.Mode = config.ModeAccelerated
			if *realtime {
				cfg.Run.Mode = config.ModeRealTime
			}
		case "log-every":
			cfg.Run.LogEvery = *logEvery
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *dumpConfig != "" {
		return cfg.WriteToFile(*dumpConfig)
	}

	opts, err := cfg.EngineOptions(log)
	if err != nil {
		return err
	}
	seedValue := cfg.SeedValue(time.Now())
	engine, err := core.NewNetworkEngine(cfg.EngineConfig(seedValue), opts...)
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	log.Info(ctx, "network ready", logging.Uint64("seed", seedValue))

	if *scenarioPath != "" {
		if err := loadScenario(engine, *scenarioPath, log); err != nil {
			return err
		}
	}

	tracingCfg, err := cfg.Tracing.ApplyEnv(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}
	tracing, err := observability.StartTracing(ctx, tracingCfg, log)
	if err != nil {
		return err
	}
	defer tracing.Shutdown(context.Background(), log)

	runnerOpts := []sim.RunnerOption{
		sim.WithLogger(log),
		sim.WithTracer(tracing.Tracer()),
		sim.WithLogEvery(cfg.Run.LogEvery),
	}
	if *metricsAddr != "" {
		metrics, err := observability.NewSimCollector(nil)
		if err != nil {
			return fmt.Errorf("initialise metrics collector: %w", err)
		}
		topology, err := observability.NewTopologyCollector(nil)
		if err != nil {
			return fmt.Errorf("initialise topology collector: %w", err)
		}
		srv := serveMetrics(*metricsAddr, metrics, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		runnerOpts = append(runnerOpts, sim.WithMetrics(metrics), sim.WithTopologyMetrics(topology))
	}
	telemetry := sim.NewTelemetryState()
	runnerOpts = append(runnerOpts, sim.WithTelemetry(telemetry))

	tickDur, _ := cfg.Run.TickDuration()
	mode := timectrl.Accelerated
	if !cfg.Run.Accelerated() {
		mode = timectrl.RealTime
		if tickDur <= 0 {
			return fmt.Errorf("%w: realtime mode needs a positive tick", core.ErrConfiguration)
		}
	}
	clock := timectrl.NewTimeController(time.Now().UTC(), tickDur, mode)

	if _, err := sim.NewRunner(engine, clock, runnerOpts...).Run(ctx, cfg.Run.Steps); err != nil {
		return err
	}
	if err := writeTelemetry(stdout, telemetry); err != nil {
		return err
	}
	if *printMatrix {
		return writeStatusMatrix(stdout, engine.Latest())
	}
	return nil
}

func loadScenario(engine *core.NetworkEngine, path string, log logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open scenario %q: %w", path, err)
	}
	defer f.Close()

	scenario, err := core.LoadScenario(engine, f)
	if err != nil {
		return err
	}
	log.Info(context.Background(), "loaded scenario",
		logging.String("path", path),
		logging.Int("placed", len(scenario.Placed)),
		logging.Int("retuned", len(scenario.Retuned)),
	)
	return nil
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func writeTelemetry(w io.Writer, ts *sim.TelemetryState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "node\tx_km\ty_km\theard\treaches\tbest_margin_db\tavailability\t")
	for _, n := range ts.ListAll() {
		margin := "-"
		if !math.IsInf(n.BestMarginDB, -1) {
			margin = fmt.Sprintf("%.2f", n.BestMarginDB)
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%d\t%d\t%s\t%.2f\t\n",
			n.NodeID, n.Position.X, n.Position.Y, n.Heard, n.Reaches, margin, n.Availability())
	}
	return tw.Flush()
}

func writeStatusMatrix(w io.Writer, res *core.StepResult) error {
	if res == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "step %d link status\n", res.Step); err != nil {
		return err
	}
	for _, row := range res.StatusMatrix() {
		line := make([]byte, 0, 2*len(row))
		for j, v := range row {
			if j > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendInt(line, int64(v), 10)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
