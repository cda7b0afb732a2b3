package main

import (
	"fmt"
	"sync/atomic"

	"github.com/urfave/cli/v2"

	feedagent "github.com/Swind/go-feed-agent"
	"github.com/Swind/go-feed-agent/source"
)

func RefreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "refresh every feed once and exit",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "source",
				Usage: "refresh only this source id",
			},
		},
		Action: RefreshAction,
	}
}

func RefreshAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	agent := feedagent.New(e.registry, e.cfg, feedagent.WithLogger(e.logger))
	defer agent.Shutdown()

	var ok, failed atomic.Int64
	onRefresh := func(feed *source.Feed, err error) {
		if err != nil {
			failed.Add(1)
			return
		}
		ok.Add(1)
	}

	if id := c.Uint64("source"); id != 0 {
		err = agent.QueueRefreshSource(id, onRefresh)
	} else {
		err = agent.QueueRefreshAllSources(onRefresh)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	done := make(chan feedagent.MonitorOutcome, 1)
	if err := agent.QueueMonitorFeedRefreshCompletion(func(o feedagent.MonitorOutcome) { done <- o }); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	select {
	case o := <-done:
		fmt.Printf("refresh %s: %d feeds updated, %d failed\n", o, ok.Load(), failed.Load())
	case <-c.Context.Done():
		return cli.Exit("interrupted", 130)
	}
	if failed.Load() > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
