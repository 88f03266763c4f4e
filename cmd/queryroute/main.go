// Copyright 2025 Poiesic Systems
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/queryroute"
	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/catalog"
	"github.com/poiesic/queryroute/core"
	"github.com/poiesic/queryroute/schema"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "queryroute",
		Usage: "Natural-language query routing for document collections",
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
				Name:      "query",
				Usage:     "Resolve a natural-language query against the configured schemas",
				Action:    queryCommand,
				ArgsUsage: "<query text>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the query cache directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "schemas",
						Aliases:  []string{"s"},
						Usage:    "Path to the YAML schema definitions file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "scope",
						Usage: "Restrict resolution to one schema ID",
					},
					&cli.BoolFlag{
						Name:  "no-refine",
						Usage: "Disable the language-model fallback",
					},
					&cli.StringFlag{
						Name:  "refiner-host",
						Usage: "Refinement service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "refiner-model",
						Usage: "Refinement model name",
						Value: "qwen2.5:3b",
					},
				},
			},
			{
				Name:   "catalog",
				Usage:  "Show the canonical field catalog built from the configured schemas",
				Action: catalogCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "schemas",
						Aliases:  []string{"s"},
						Usage:    "Path to the YAML schema definitions file",
						Required: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show query cache statistics",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the query cache directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "schemas",
						Aliases:  []string{"s"},
						Usage:    "Path to the YAML schema definitions file",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func queryCommand(c *cli.Context) error {
	ctx := context.Background()

	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("query text is required")
	}

	opts := []queryroute.EngineOption{
		queryroute.WithAIConfig(ai.NewConfig(
			ai.WithHost(c.String("refiner-host")),
			ai.WithModel(c.String("refiner-model")),
		)),
	}
	if c.Bool("no-refine") {
		opts = append(opts, queryroute.WithoutRefinement())
	}

	engine, err := queryroute.NewEngine(ctx, c.String("db"), schema.NewFileSource(c.String("schemas")), opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer engine.Close()

	scope := core.ScopeContext{SchemaID: c.String("scope")}
	result, err := engine.Resolve(ctx, text, scope)
	if err != nil {
		return fmt.Errorf("resolution failed: %w", err)
	}

	fmt.Printf("intent:      %s\n", result.Analysis.Intent)
	fmt.Printf("confidence:  %.2f\n", result.Analysis.Confidence)
	fmt.Printf("cached:      %v\n", result.FromCache)
	fmt.Printf("refined:     %v\n", result.UsedRefinement)
	if len(result.Analysis.MatchTerms) > 0 {
		fmt.Printf("match terms: %s\n", strings.Join(result.Analysis.MatchTerms, " "))
	}
	for _, f := range result.Analysis.Filters {
		fmt.Printf("filter:      %s %s %s\n", filterField(f), f.Operator, filterValue(f.Value))
	}
	fmt.Printf("hits:        %d\n", result.Total)
	for _, hit := range result.Hits {
		fmt.Printf("  %s/%s (score %.2f)\n", hit.SchemaID, hit.DocumentID, hit.Score)
	}
	return nil
}

func catalogCommand(c *cli.Context) error {
	ctx := context.Background()

	cat, err := catalog.NewCatalog(schema.NewFileSource(c.String("schemas")))
	if err != nil {
		return fmt.Errorf("failed to create catalog: %w", err)
	}
	if err := cat.Rebuild(ctx); err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}

	snap := cat.Snapshot()
	fmt.Printf("catalog version %d\n", snap.Version())
	for _, name := range snap.CanonicalNames() {
		fmt.Printf("%s -> %s\n", name, strings.Join(snap.Expand(name), ", "))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := queryroute.NewEngine(ctx, c.String("db"), schema.NewFileSource(c.String("schemas")),
		queryroute.WithoutRefinement(),
	)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer engine.Close()

	n, err := engine.CacheLen(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	fmt.Printf("catalog version: %d\n", engine.CatalogVersion())
	fmt.Printf("cached queries:  %d\n", n)
	return nil
}

func filterField(f core.Filter) string {
	if f.Resolved() {
		return f.CanonicalField
	}
	return f.Field
}

func filterValue(v core.FilterValue) string {
	switch v.Kind {
	case core.ValueText:
		return v.Text
	case core.ValueNumber:
		if v.UpperNumber > v.Number {
			return fmt.Sprintf("%g..%g", v.Number, v.UpperNumber)
		}
		return fmt.Sprintf("%g", v.Number)
	case core.ValueBool:
		return fmt.Sprintf("%v", v.Bool)
	case core.ValueDateRange:
		if v.Period != core.PeriodNone {
			return v.Period.String()
		}
		return fmt.Sprintf("%s..%s", v.From.Format("2006-01-02"), v.To.Format("2006-01-02"))
	}
	return ""
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
