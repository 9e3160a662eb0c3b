package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/config"
	"github.com/technopolitica/open-registry/internal/ingest"
	"github.com/technopolitica/open-registry/internal/recognizer"
	"github.com/technopolitica/open-registry/internal/report"
)

func ingestCmd(a *app) *cobra.Command {
	var (
		imagesDir   string
		resultsDir  string
		concurrency int
		ollamaURL   string
		model       string
		reg         registryFlags
	)
	cmd := &cobra.Command{
		Use:   "ingest [images-dir]",
		Short: "Recognize plates in a directory of images and cache their vehicles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.config
			if len(args) == 1 {
				c.Ingest.ImagesDir = args[0]
			}
			flags := cmd.Flags()
			if flags.Changed("images-dir") {
				c.Ingest.ImagesDir = imagesDir
			}
			if flags.Changed("results-dir") {
				c.Ingest.ResultsDir = resultsDir
			}
			if flags.Changed("concurrency") {
				c.Ingest.Concurrency = concurrency
			}
			if flags.Changed("ollama-url") {
				c.Recognizer.Endpoint = ollamaURL
			}
			if flags.Changed("model") {
				c.Recognizer.Model = model
			}
			reg.apply(cmd, c)
			if err := config.Validate(c.ValidateDatabase, c.ValidateRegistry, c.ValidateRecognizer, c.ValidateIngest); err != nil {
				return err
			}
			return a.ingest(cmd)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&imagesDir, "images-dir", "", "directory of car images")
	flags.StringVar(&resultsDir, "results-dir", "", "directory the recognition results CSV is written to; empty skips it")
	flags.IntVar(&concurrency, "concurrency", 0, "images processed in parallel")
	flags.StringVar(&ollamaURL, "ollama-url", "", fmt.Sprintf("Ollama server URL (env %s)", config.EnvOllamaURL))
	flags.StringVar(&model, "model", "", fmt.Sprintf("vision model used to read plates (env %s)", config.EnvOllamaModel))
	reg.register(cmd)
	return cmd
}

func (a *app) ingest(cmd *cobra.Command) error {
	ctx := cmd.Context()
	c := a.config

	pool, store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := ingest.NewMetrics(prometheus.NewRegistry())
	pipeline, err := a.newPipeline(store, metrics)
	if err != nil {
		return err
	}
	ollama, err := recognizer.NewOllama(recognizer.Config{
		Endpoint: c.Recognizer.Endpoint,
		Model:    c.Recognizer.Model,
		Timeout:  c.Recognizer.Timeout,
	}, a.log)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	batch := ingest.NewBatch(ollama, pipeline, c.Ingest.Concurrency, metrics, a.log)
	results, err := batch.Run(ctx, c.Ingest.ImagesDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	recognitions := make([]report.Recognition, 0, len(results))
	for _, result := range results {
		recognitions = append(recognitions, report.Recognition{Path: result.Path, Plate: result.Candidate})
		switch {
		case result.Vehicle != nil:
			fmt.Fprintf(out, "%s\t%s\t%s\n", result.Path, result.Vehicle.Plate, result.Outcome)
		case result.Err != nil:
			fmt.Fprintf(out, "%s\t%s\tSomething went wrong with plate %s: %s\n", result.Path, result.Candidate, result.Candidate, result.Err)
		default:
			fmt.Fprintf(out, "%s\t-\tno plate found\n", result.Path)
		}
	}

	if c.Ingest.ResultsDir == "" {
		return nil
	}
	return writeResultsFile(c.Ingest.ResultsDir, report.ResultFileName(ollama.Model(), startedAt), recognitions)
}

func writeResultsFile(dir string, name string, recognitions []report.Recognition) (err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return report.WriteResults(file, recognitions)
}
