package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-feed-agent/source"
	"github.com/Swind/go-feed-agent/source/dummy"
)

func SourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "manage the sources stored in the database",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list configured sources",
				Action: SourcesListAction,
			},
			{
				Name:  "add",
				Usage: "add or replace a source",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "id", Required: true, Usage: "source id"},
					&cli.StringFlag{Name: "type", Value: dummy.Type, Usage: "source type"},
					&cli.StringFlag{Name: "title", Usage: "display title"},
					&cli.StringSliceFlag{Name: "param", Aliases: []string{"p"}, Usage: "key=value parameter, repeatable"},
				},
				Action: SourcesAddAction,
			},
			{
				Name:      "remove",
				Usage:     "remove a source",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "id", Required: true, Usage: "source id"},
				},
				Action: SourcesRemoveAction,
			},
		},
	}
}

func SourcesListAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()
	if e.store == nil {
		return cli.Exit("database.url is not configured", 2)
	}

	rows, err := e.store.Load(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tLAST ERROR")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Config.ID, r.Config.Type, r.Config.Title, r.LastError)
	}
	return w.Flush()
}

func SourcesAddAction(c *cli.Context) error {
	params, err := parseParams(c.StringSlice("param"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()
	if e.store == nil {
		return cli.Exit("database.url is not configured", 2)
	}

	cfg := source.Config{
		ID:     c.Uint64("id"),
		Type:   c.String("type"),
		Title:  c.String("title"),
		Params: params,
	}
	// Building the source validates type and params before they are stored.
	if _, err := e.registry.Build(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("invalid source: %v", err), 2)
	}
	if err := e.store.Upsert(c.Context, cfg); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	fmt.Printf("source %d saved\n", cfg.ID)
	return nil
}

func SourcesRemoveAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()
	if e.store == nil {
		return cli.Exit("database.url is not configured", 2)
	}

	id := c.Uint64("id")
	if err := e.store.Delete(c.Context, id); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	fmt.Printf("source %d removed\n", id)
	return nil
}

func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("param %q: want key=value", p)
		}
		params[k] = v
	}
	return params, nil
}
