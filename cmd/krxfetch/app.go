package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/krx-daily/internal/logger"
	"github.com/rxtech-lab/krx-daily/internal/version"
	"github.com/rxtech-lab/krx-daily/pkg/errors"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata/provider"
)

const (
	exitOK    = 0
	exitFault = 1
	exitEmpty = 2

	noDataMessage = "❌ 데이터 없음"
	savedMessage  = "✅ CSV 저장 완료: %s"
)

type app struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// newApp builds the krxfetch command tree. Status lines go to stdout,
// progress and logs to stderr.
func newApp(stdout io.Writer, stderr io.Writer, now func() time.Time) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr, now: now}

	return &cli.Command{
		Name:      "krxfetch",
		Usage:     "Download daily closing prices and save them as <symbol>.csv",
		Version:   version.GetVersion(),
		Writer:    stdout,
		ErrWriter: stderr,
		// exit codes are resolved by main
		ExitErrHandler: func(ctx context.Context, cmd *cli.Command, err error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "symbol",
				Aliases: []string{"s"},
				Usage:   "Ticker to download (six digit KRX code or ISIN for krx)",
				Value:   marketdata.DefaultSymbol,
				Sources: cli.EnvVars("KRX_SYMBOL"),
			},
			&cli.IntFlag{
				Name:    "years",
				Aliases: []string{"y"},
				Usage:   "Lookback window in 365-day years",
				Value:   marketdata.DefaultYears,
				Sources: cli.EnvVars("KRX_YEARS"),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Directory the CSV file is written to",
				Value:   marketdata.DefaultDataPath,
				Sources: cli.EnvVars("KRX_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider to use (e.g., %s, %s, %s)", marketdata.ProviderKRX, marketdata.ProviderPolygon, marketdata.ProviderBinance),
				Value:   string(marketdata.ProviderKRX),
				Sources: cli.EnvVars("KRX_PROVIDER"),
			},
			&cli.BoolFlag{
				Name:  "adjusted",
				Usage: "Request adjusted prices where the provider supports it",
				Value: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request HTTP timeout (0 means none)",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar on stderr",
			},
			&cli.BoolFlag{
				Name:  "fail-on-empty",
				Usage: fmt.Sprintf("Exit with status %d when the provider returns no rows", exitEmpty),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML download config; explicit flags take precedence",
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Override the provider endpoint",
				Hidden:  true,
				Sources: cli.EnvVars("KRX_BASE_URL"),
			},
		},
		Action: a.fetch,
		Commands: []*cli.Command{
			a.loadCommand(),
			a.statsCommand(),
			a.providersCommand(),
			a.schemaCommand(),
		},
	}
}

// exitCode maps an error returned by the command tree to a process status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return exitFault
}

func (a *app) fetch(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	config, err := downloadConfig(cmd)
	if err != nil {
		return err
	}

	clientConfig := config.ToClientConfig()
	clientConfig.Timeout = cmd.Duration("timeout")
	clientConfig.BaseURL = cmd.String("base-url")

	onProgress, finish := a.progress(cmd.Bool("progress"))
	defer finish()

	client, err := marketdata.NewClient(clientConfig, onProgress, marketdata.WithLogger(log.Logger))
	if err != nil {
		return err
	}

	_, err = client.Download(ctx, config.ToDownloadParams(a.now()))

	switch {
	case errors.IsNoData(err):
		log.Info("no rows returned", zap.String("symbol", config.Symbol))
		fmt.Fprintln(a.stdout, noDataMessage)

		if cmd.Bool("fail-on-empty") {
			return cli.Exit("", exitEmpty)
		}

		return nil
	case err != nil:
		log.Error("fetch failed", zap.String("symbol", config.Symbol), zap.Error(err))

		return err
	}

	fmt.Fprintf(a.stdout, savedMessage+"\n", config.Symbol)

	return nil
}

func (a *app) progress(enabled bool) (provider.OnDownloadProgress, func()) {
	if !enabled {
		return nil, func() {}
	}

	return newProgressReporter(a.stderr)
}

// downloadConfig starts from the defaults or the --config file and applies
// every flag that was set explicitly.
func downloadConfig(cmd *cli.Command) (*marketdata.DownloadConfig, error) {
	config := marketdata.DefaultDownloadConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := marketdata.LoadDownloadConfig(path)
		if err != nil {
			return nil, err
		}

		config = *loaded
	}

	if cmd.IsSet("symbol") {
		config.Symbol = cmd.String("symbol")
	}

	if cmd.IsSet("years") {
		config.Years = int(cmd.Int("years"))
	}

	if cmd.IsSet("data") {
		config.DataPath = cmd.String("data")
	}

	if cmd.IsSet("provider") {
		config.Provider = cmd.String("provider")
	}

	if cmd.IsSet("adjusted") {
		config.Adjusted = cmd.Bool("adjusted")
	}

	if config.ApiKey == "" {
		config.ApiKey = os.Getenv("POLYGON_API_KEY")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
