package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	feedagent "github.com/Swind/go-feed-agent"
	"github.com/Swind/go-feed-agent/broadcast"
	"github.com/Swind/go-feed-agent/core"
	obs "github.com/Swind/go-feed-agent/observability/prometheus"
	"github.com/Swind/go-feed-agent/source"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the agent until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "override http.listen from the config",
			},
			&cli.DurationFlag{
				Name:  "refresh-interval",
				Usage: "override refresh.interval from the config (0 disables)",
				Value: -1,
			},
		},
		Action: RunAction,
	}
}

func RunAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	if v := c.String("listen"); v != "" {
		e.cfg.HTTP.Listen = v
	}
	if v := c.Duration("refresh-interval"); v >= 0 {
		e.cfg.Refresh.Interval = v
	}

	d, err := newDaemon(c.Context, e)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	return d.run(c.Context)
}

// daemon ties the agent to its HTTP surface and error transports.
type daemon struct {
	cfg     feedagent.Config
	logger  core.Logger
	agent   *feedagent.Agent
	replies *core.ReplyRunner
	hub     *broadcast.Hub
	poller  *obs.SnapshotPoller
	redis   *redis.Client
	server  *http.Server
}

func newDaemon(ctx context.Context, e *env) (*daemon, error) {
	reg := prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("feedagent", reg, obs.ExporterOptions{Dispatcher: e.cfg.Name})
	if err != nil {
		return nil, err
	}
	poller, err := obs.NewSnapshotPoller(reg, time.Second)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		cfg:     e.cfg,
		logger:  e.logger,
		replies: core.NewReplyRunner("replies", e.logger),
		hub:     broadcast.NewHub(e.logger),
		poller:  poller,
	}

	sinks := broadcast.Fanout{d.hub}
	if e.cfg.Redis.Addr != "" {
		client, err := broadcast.NewRedisClient(ctx, e.cfg.Redis.Addr)
		if err != nil {
			d.replies.Stop()
			return nil, err
		}
		d.redis = client
		sinks = append(sinks, broadcast.NewRedisSink(client,
			broadcast.WithChannel(e.cfg.Redis.Channel),
			broadcast.WithRedisLogger(e.logger)))
	}

	d.agent = feedagent.New(e.registry, e.cfg,
		feedagent.WithLogger(e.logger),
		feedagent.WithMetrics(exporter),
		feedagent.WithReplyRunner(d.replies),
		feedagent.WithErrorSink(sinks),
	)
	poller.AddDispatcher(e.cfg.Name, d.agent.Dispatcher())
	poller.AddPool(e.cfg.Name, obs.PoolStatsFunc(d.agent.Dispatcher().PoolStats))

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", d.handleHealth)
	mux.Handle("GET /errors", d.hub)
	d.server = &http.Server{
		Addr:              e.cfg.HTTP.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return d, nil
}

func (d *daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := d.agent.Stats()
	if st.Closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintf(w, "ok backlog=%d in_flight=%d\n", st.Backlog, st.InFlight)
}

func (d *daemon) run(ctx context.Context) error {
	d.poller.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		d.logger.Info("http listening", core.F("addr", d.server.Addr))
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	d.loadTrees()
	refreshes := d.scheduleRefresh(ctx)

	var err error
	select {
	case <-ctx.Done():
		d.logger.Info("shutdown requested")
	case err = <-serveErr:
		d.logger.Error("http server failed", core.F("error", err))
	}

	<-refreshes
	d.shutdown()
	return err
}

func (d *daemon) loadTrees() {
	err := d.agent.QueueGetAllSourceTrees(func(tree source.Tree) {
		d.logger.Info("source loaded",
			core.F("source", tree.SourceID),
			core.F("title", tree.Title),
			core.F("feeds", len(tree.Feeds)))
	})
	if err != nil {
		d.logger.Warn("loading source trees", core.F("error", err))
		return
	}
	err = d.agent.QueueMonitorSourceReloadCompletion(func(o feedagent.MonitorOutcome) {
		d.logger.Info("all sources loaded", core.F("outcome", o.String()))
	})
	if err != nil {
		d.logger.Warn("queue source reload monitor", core.F("error", err))
	}
}

// scheduleRefresh refreshes every source each Refresh.Interval until ctx is
// done. The returned channel is closed when the loop has exited.
func (d *daemon) scheduleRefresh(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if d.cfg.Refresh.Interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(d.cfg.Refresh.Interval)
		defer ticker.Stop()

		d.refreshAll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.refreshAll()
			}
		}
	}()
	return done
}

func (d *daemon) refreshAll() {
	start := time.Now()
	var failed int
	err := d.agent.QueueRefreshAllSources(func(feed *source.Feed, err error) {
		// Runs on the reply runner, so failed needs no lock.
		if err != nil {
			failed++
		}
	})
	if err != nil {
		d.logger.Warn("queue refresh", core.F("error", err))
		return
	}
	err = d.agent.QueueMonitorFeedRefreshCompletion(func(o feedagent.MonitorOutcome) {
		d.logger.Info("refresh round finished",
			core.F("outcome", o.String()),
			core.F("failed", failed),
			core.F("took", time.Since(start).String()))
	})
	if err != nil {
		d.logger.Warn("queue refresh monitor", core.F("error", err))
	}
}

func (d *daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		d.logger.Warn("http shutdown", core.F("error", err))
	}
	d.agent.Shutdown()
	d.poller.Stop()
	d.hub.Close()
	d.replies.Stop()
	if d.redis != nil {
		d.redis.Close()
	}
}
