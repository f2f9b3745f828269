package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/convert"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/relay"
	"github.com/bail-wils/Support-Knowledge-Agent/pkg/logger"
	"github.com/urfave/cli/v2"
)

func newModeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "mode",
		Usage:   "Output mode: bundle (one document) or per-row",
		Value:   string(convert.ModeBundle),
		EnvVars: []string{"RELAY_OUTPUT_MODE"},
	}
}

func main() {
	app := &cli.App{
		Name:  "convert",
		Usage: "Convert report exports to Markdown, locally or through a drive",
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			logger.Configure(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "file",
				Usage:     "Convert a local CSV, TSV or XLSX file into Markdown files",
				ArgsUsage: "<input> <output-dir>",
				Flags:     []cli.Flag{newModeFlag()},
				Action:    convertFile,
			},
			{
				Name:  "relay",
				Usage: "Run one relay invocation against the configured drive",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "item-path",
						Usage:    "Path of the report relative to the drive root",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "drive-id",
						Usage:   "Drive holding the report",
						EnvVars: []string{"DRIVE_ID"},
					},
				},
				Action: runRelay,
			},
			{
				Name:  "last",
				Usage: "Print the last recorded relay run",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "history",
						Usage: "Print up to N previous runs, newest first, instead of the last one",
					},
				},
				Action: printLast,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("convert failed")
	}
}

func convertFile(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: convert file <input> <output-dir>", 2)
	}
	input, outDir := c.Args().Get(0), c.Args().Get(1)

	raw, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	out, err := convert.Convert(filepath.Base(input), raw, convert.Options{Mode: convert.Mode(c.String("mode"))})
	if err != nil {
		return fmt.Errorf("convert %s: %w", input, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	for _, doc := range out.Documents {
		dest := filepath.Join(outDir, doc.Name)
		if err := os.WriteFile(dest, doc.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}

	logger.Log.Info().
		Str("input", input).
		Str("parser", string(out.Parser)).
		Str("encoding", out.Encoding).
		Int("rows", out.Rows).
		Int("skipped", out.Skipped).
		Int("written", len(out.Documents)).
		Str("output_dir", outDir).
		Msg("Conversion complete")
	return nil
}

func newService() (*relay.Service, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return relay.FromConfig(cfg)
}

func runRelay(c *cli.Context) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	res, err := svc.Relay(c.Context, relay.Request{
		DriveID:  c.String("drive-id"),
		ItemPath: c.String("item-path"),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return printJSON(res)
}

func printLast(c *cli.Context) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	if n := c.Int64("history"); n > 0 {
		entries, err := svc.History(c.Context, n)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return printJSON(entries)
	}

	entry, err := svc.Last(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return printJSON(entry)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
