// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/cohort"
	"github.com/poiesic/cohort/ai"
	"github.com/poiesic/cohort/ai/openai"
	"github.com/poiesic/cohort/catalog"
	"github.com/poiesic/cohort/search"
	"github.com/poiesic/cohort/segment"
	"github.com/poiesic/cohort/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "cohort",
		Usage:  "Variable search and audience segmentation over a demographic catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Load a variable catalog CSV into the database",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "csv",
						Usage:    "Path to the catalog CSV file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (embeddings are skipped when no model is set)",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of descriptions to embed in each batch",
						Value: 64,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search catalog variables matching an audience description",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "filter-similar",
						Usage: "Suppress near-duplicate results",
						Value: true,
					},
					&cli.Float64Flag{
						Name:  "similarity-threshold",
						Usage: "Jaro-Winkler threshold for near-duplicate grouping",
					},
					&cli.IntFlag{
						Name:  "max-per-group",
						Usage: "Representatives kept per similarity group",
					},
					&cli.Float64Flag{
						Name:  "keyword-weight",
						Usage: "Keyword score weight (paired with semantic-weight)",
					},
					&cli.Float64Flag{
						Name:  "semantic-weight",
						Usage: "Semantic score weight (paired with keyword-weight)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name (keyword-only when unset)",
					},
				},
			},
			{
				Name:   "segment",
				Usage:  "Cluster a population file into balanced audience segments",
				Action: segmentCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "records",
						Aliases:  []string{"r"},
						Usage:    "Path to the population JSON file (array of objects keyed by variable code)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "codes",
						Usage:    "Comma-separated confirmed variable codes",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "min-fraction",
						Usage: "Minimum segment population fraction",
					},
					&cli.Float64Flag{
						Name:  "max-fraction",
						Usage: "Maximum segment population fraction",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Override the derived segment count",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	// Read the catalog CSV
	source := catalog.CSVSource{Path: c.String("csv")}
	variables, err := source.Variables(ctx)
	if err != nil {
		return fmt.Errorf("failed to read catalog CSV: %w", err)
	}

	// Open database
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	variableRepo := badger.NewVariableRepository(backend)
	defer variableRepo.Close()

	if err := variableRepo.AddVariables(ctx, variables...); err != nil {
		return fmt.Errorf("failed to store variables: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Stored %d variables\n", len(variables))

	// Compute and store embeddings when a model is configured
	model := c.String("embedding-model")
	if model == "" {
		return nil
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(model),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	embeddingRepo := badger.NewEmbeddingRepository(backend)
	defer embeddingRepo.Close()

	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	for start := 0; start < len(variables); start += batchSize {
		end := start + batchSize
		if end > len(variables) {
			end = len(variables)
		}

		texts := make([]string, 0, end-start)
		for _, v := range variables[start:end] {
			texts = append(texts, v.Description)
		}
		embedded, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}

		vectors := make(map[string][]float32, len(embedded))
		for i, vec := range embedded {
			vectors[variables[start+i].Code] = vec
		}
		if err := embeddingRepo.PutEmbeddings(ctx, vectors); err != nil {
			return fmt.Errorf("failed to store embeddings: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Embedded %d/%d\n", end, len(variables))
	}

	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	queryText := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if queryText == "" {
		return fmt.Errorf("query argument is required")
	}

	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	req := &cohort.SearchRequest{
		Query:               queryText,
		TopK:                c.Int("top-k"),
		FilterSimilar:       c.Bool("filter-similar"),
		SimilarityThreshold: c.Float64("similarity-threshold"),
		MaxSimilarPerGroup:  c.Int("max-per-group"),
	}
	if c.IsSet("keyword-weight") || c.IsSet("semantic-weight") {
		req.Weights = &search.Weights{
			Keyword:  c.Float64("keyword-weight"),
			Semantic: c.Float64("semantic-weight"),
		}
	}

	resp, err := engine.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for _, w := range resp.Warnings {
		fmt.Fprintf(os.Stderr, "warning (%s): %s\n", w.Kind, w.Message)
	}
	if resp.Interpretation.Domain != "" {
		fmt.Fprintf(os.Stderr, "domain: %s\n", resp.Interpretation.Domain)
	}

	fmt.Printf("%d matches\n", resp.TotalFound)
	for i, r := range resp.Results {
		fmt.Printf("%2d. %-16s %.3f  %s\n", i+1, r.Variable.Code, r.Score, r.Variable.Description)
		fmt.Printf("    %s\n", r.Explanation)
	}

	return nil
}

func segmentCommand(c *cli.Context) error {
	ctx := context.Background()

	// Read the population file
	data, err := os.ReadFile(c.String("records"))
	if err != nil {
		return fmt.Errorf("failed to read population file: %w", err)
	}
	var records []segment.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse population file: %w", err)
	}

	codes := strings.Split(c.String("codes"), ",")
	for i := range codes {
		codes[i] = strings.TrimSpace(codes[i])
	}

	engine, cleanup, err := openEngine(c)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.Segment(ctx, &cohort.SegmentRequest{
		Codes:       codes,
		Records:     records,
		MinFraction: c.Float64("min-fraction"),
		MaxFraction: c.Float64("max-fraction"),
		K:           c.Int("k"),
	})
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	for _, w := range resp.Warnings {
		fmt.Fprintf(os.Stderr, "warning (%s): %s\n", w.Kind, w.Message)
	}

	fmt.Printf("%d segments over %d records\n", len(resp.Segments), resp.Total)
	for _, s := range resp.Segments {
		fmt.Printf("%2d. %-50s %5d (%.1f%%)\n", s.ID+1, s.Name, s.Size, 100*s.Fraction(resp.Total))
		for _, t := range s.Traits {
			fmt.Printf("    %-30s %+.2f\n", t.Label, t.Deviation)
		}
	}

	return nil
}

// openEngine wires a root engine over the database named by --db, with an
// embedding provider when --embedding-model is set.
func openEngine(c *cli.Context) (*cohort.Engine, func(), error) {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	variableRepo := badger.NewVariableRepository(backend)
	embeddingRepo := badger.NewEmbeddingRepository(backend)
	source := catalog.RepositorySource{
		VariableRepo:  variableRepo,
		EmbeddingRepo: embeddingRepo,
	}

	var provider ai.Provider
	if model := c.String("embedding-model"); model != "" {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(model),
		)
		if err := aiConfig.Validate(); err != nil {
			backend.Close()
			return nil, nil, fmt.Errorf("invalid AI configuration: %w", err)
		}
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			backend.Close()
			return nil, nil, fmt.Errorf("failed to create AI provider: %w", err)
		}
	}

	engine, err := cohort.New(source, provider)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	cleanup := func() {
		if err := engine.Close(); err != nil {
			slog.Default().Error("error closing engine", "err", err)
		}
		embeddingRepo.Close()
		variableRepo.Close()
		backend.Close()
	}
	return engine, cleanup, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
