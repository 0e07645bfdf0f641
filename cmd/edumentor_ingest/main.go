package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/edumentor"
)

func main() {
	cmd := &cli.Command{
		Name:      "edumentor_ingest",
		Usage:     "Index a PDF file or a folder of PDFs into the EduMentor store",
		ArgsUsage: "<file or directory>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the EduMentor working directory",
			},
			&cli.StringFlag{
				Name:  "pattern",
				Usage: "File pattern used when ingesting a directory",
				Value: "*.pdf",
			},
			&cli.BoolFlag{
				Name:  "skip-ingested",
				Usage: "Skip files whose content is already in the catalog",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log every ingested page",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("expected exactly one file or directory")
	}

	target := cmd.Args().First()

	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".flarex", "edumentor")
	}

	log := zap.NewNop()
	if cmd.Bool("verbose") {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer l.Sync()

		log = l
	}

	zap.ReplaceGlobals(log)

	cfg, err := edumentor.LoadConfig(path)
	if err != nil {
		return err
	}

	if cmd.Bool("skip-ingested") {
		cfg.Ingest.SkipIngested = true
	}

	svc, err := edumentor.Open(ctx, cfg)
	if err != nil {
		return err
	}

	svc = edumentor.LoggingMiddleware(log)(svc)
	defer svc.Close()

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	gray := color.New(color.FgHiBlack)

	var n int
	if info.IsDir() {
		gray.Printf("Ingesting %s in %s\n", cmd.String("pattern"), target)
		n, err = svc.IngestFolder(ctx, target, cmd.String("pattern"))
	} else {
		gray.Printf("Ingesting %s\n", target)
		n, err = svc.Ingest(ctx, target)
	}

	if err != nil {
		color.New(color.FgRed).Printf("Ingestion failed after %d chunks: %v\n", n, err)
		return err
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}

	green.Printf("Ingested %d chunks\n", n)
	fmt.Printf("  Store: %d chunks from %d documents (%s, dim %d)\n",
		stats.Chunks, stats.Documents, stats.Model, stats.Dimension)

	for _, source := range stats.Sources {
		gray.Printf("    %s\n", source)
	}

	return nil
}
