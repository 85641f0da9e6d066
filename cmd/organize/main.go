// Command organize renumbers the question markers of a worksheet PDF.
//
//	organize [--legend] [--config FILE] INPUT OUTPUT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/wudi/pdforganizer/config"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/ocr/tesseract"
	"github.com/wudi/pdforganizer/organizer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "organize: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "organize",
		Usage:     "renumber question markers across a worksheet PDF",
		ArgsUsage: "INPUT OUTPUT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "legend",
				Aliases: []string{"l"},
				Usage:   "add a legend mapping new numbers to the original ones on page 1",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file with ORGANIZE_* overrides (ignored when missing)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
			},
			&cli.StringSliceFlag{
				Name:  "lang",
				Usage: "OCR language (repeatable)",
			},
		},
		HideHelpCommand: true,
		Action:          run,
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("%w: expected INPUT and OUTPUT, got %d arguments", errUsage, c.NArg())
	}
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if langs := c.StringSlice("lang"); len(langs) > 0 {
		cfg.OCR.Languages = langs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	input, output, err := resolvePaths(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	log := observability.NewTextLogger(c.App.ErrWriter, cfg.LogLevel).
		With(observability.String("run", uuid.NewString()))
	log.Debug("paths resolved", observability.String("input", input), observability.String("output", output))

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	res, err := organizer.Reorganize(c.Context, data, organizer.Options{
		Config: cfg,
		Engine: tesseract.New(),
		Legend: c.Bool("legend"),
		Logger: log,
	})
	if err != nil {
		return err
	}
	if err := writeLocked(output, res.Data); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Saving renumbered PDF to '%s' (%d questions)\n",
		relative(output), res.Questions())
	return nil
}

func relative(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil {
		return rel
	}
	return path
}
