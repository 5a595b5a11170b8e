package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/zvukgrab/config"
	"github.com/xeptore/zvukgrab/constant"
	"github.com/xeptore/zvukgrab/log"
	"github.com/xeptore/zvukgrab/zvuk"
	"github.com/xeptore/zvukgrab/zvuk/types"
)

func main() {
	logger := log.NewDefault()

	//nolint:exhaustruct
	app := &cli.Command{
		Name:    "zvukgrab",
		Version: constant.Version,
		Metadata: map[string]any{
			"compiled_at": constant.CompileTime,
		},
		Suggest:                    true,
		Usage:                      "Zvuk Catalog Downloader",
		ArgsUsage:                  "URL [URL...]",
		EnableShellCompletion:      true,
		ShellCompletionCommandName: "shell-completion",
		AllowExtFlags:              false,
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Config file path",
				Required: false,
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			os.Exit(1)
		}

		var exitCode exitCodeError
		if errors.As(err, &exitCode) {
			os.Exit(int(exitCode))
		}

		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(10)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "error with exit code: " + strconv.Itoa(int(e))
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.NewDefault()

	if err := godotenv.Load(); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env file: %v", err)
		}
		logger.Info().Msg(".env file was not found")
	} else {
		logger.Debug().Msg(".env file was loaded")
	}

	conf, err := config.FromFile(cmd.String("config"))
	if nil != err {
		return fmt.Errorf("load config: %v", err)
	}

	logger = log.FromConfig(conf.Log)

	logger.Debug().Dict("config", conf.ToDict()).Msg("Config loaded")

	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		logger.Error().Msg("No URLs given. Pass at least one track, release, or audiobook URL.")
		return exitCodeError(2)
	}

	client, err := zvuk.NewClient(conf)
	if nil != err {
		return fmt.Errorf("create zvuk client: %v", err)
	}
	logger.Debug().Msg("Zvuk client created")

	outcomes, err := client.DownloadAll(ctx, logger, urls)
	if nil != err {
		return fmt.Errorf("run download batch: %w", err)
	}

	printSummary(outcomes)

	summary := types.Summarize(outcomes)
	logger.
		Info().
		Int("succeeded", summary.Succeeded).
		Int("partial", summary.Partial).
		Int("failed", summary.Failed).
		Msg("Batch finished")

	if summary.AnyFailed() {
		return exitCodeError(3)
	}

	return nil
}

func printSummary(outcomes []types.Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "URL", "Status", "Tracks", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		//nolint:exhaustruct
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, outcome := range outcomes {
		succeeded := lo.CountBy(outcome.Tracks, func(r types.TrackResult) bool { return nil == r.Err })

		var errMsg string
		if err := outcome.FirstErr(); nil != err {
			errMsg = err.Error()
		}

		t.AppendRow(table.Row{
			i + 1,
			outcome.URL,
			outcome.Status().String(),
			fmt.Sprintf("%d/%d", succeeded, len(outcome.Tracks)),
			errMsg,
		})
	}

	t.Render()
}
