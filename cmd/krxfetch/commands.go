package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/krx-daily/internal/types"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata/store"
)

func (a *app) loadCommand() *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Print the saved closes inside the lookback window",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print {time, price} points as JSON instead of CSV",
			},
		},
		Action: a.load,
	}
}

func (a *app) load(ctx context.Context, cmd *cli.Command) error {
	config, err := downloadConfig(cmd)
	if err != nil {
		return err
	}

	points, err := store.LoadDaily(config.DataPath, config.Symbol, config.Years, a.now())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return json.NewEncoder(a.stdout).Encode(points)
	}

	fmt.Fprintln(a.stdout, "date,close")

	for _, point := range points {
		fmt.Fprintf(a.stdout, "%s,%s\n", time.UnixMilli(point.Time).UTC().Format(types.DateLayout), point.Price.String())
	}

	return nil
}

type statsView struct {
	Path      string `yaml:"path"`
	Rows      int64  `yaml:"rows"`
	FirstDate string `yaml:"firstDate,omitempty"`
	LastDate  string `yaml:"lastDate,omitempty"`
	MinClose  string `yaml:"minClose,omitempty"`
	MaxClose  string `yaml:"maxClose,omitempty"`
}

func (a *app) statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize a saved CSV with DuckDB",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "since",
				Usage: "Only count rows on or after this `YYYY-MM-DD` date",
			},
		},
		Action: a.stats,
	}
}

func (a *app) stats(ctx context.Context, cmd *cli.Command) error {
	config, err := downloadConfig(cmd)
	if err != nil {
		return err
	}

	var since time.Time

	if value := cmd.String("since"); value != "" {
		since, err = time.Parse(types.DateLayout, value)
		if err != nil {
			return fmt.Errorf("invalid --since %q: %w", value, err)
		}
	}

	summary, err := store.Stats(ctx, store.CSVPath(config.DataPath, config.Symbol), since)
	if err != nil {
		return err
	}

	view := statsView{Path: summary.Path, Rows: summary.Rows}
	if summary.Rows > 0 {
		view.FirstDate = summary.FirstDate.Format(types.DateLayout)
		view.LastDate = summary.LastDate.Format(types.DateLayout)
		view.MinClose = summary.MinClose.String()
		view.MaxClose = summary.MaxClose.String()
	}

	out, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to render stats: %w", err)
	}

	_, err = a.stdout.Write(out)

	return err
}

func (a *app) providersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List the supported market data providers",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			for _, name := range marketdata.GetSupportedProviders() {
				info, err := marketdata.GetProviderInfo(name)
				if err != nil {
					return err
				}

				auth := "no auth"
				if info.RequiresAuth {
					auth = "api key"
				}

				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", info.Name, info.DisplayName, auth)
			}

			return nil
		},
	}
}

func (a *app) schemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Print the JSON schema of the download config",
		ArgsUsage: "[provider]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				name = string(marketdata.ProviderKRX)
			}

			schema, err := marketdata.GetDownloadConfigSchema(name)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.stdout, schema)

			return nil
		},
	}
}
