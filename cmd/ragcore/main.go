// Copyright 2025 Son Le
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
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	ragcore "github.com/lethanhson9903/rag-assistant-api-core"
	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

func main() {
	app := &cli.App{
		Name:  "ragcore",
		Usage: "Retrieval-augmented question answering over your documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Seed active provider configuration",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "llm-host",
						Usage: "LLM service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "llm-model",
						Usage:    "LLM model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "dimensions",
						Usage:    "Embedding vector dimensions",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk size in characters",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Chunk overlap in characters",
						Value: 200,
					},
					&cli.StringFlag{
						Name:  "metric",
						Usage: "Vector similarity metric (cosine, dot, l2)",
						Value: core.MetricCosine,
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Add a document and index it",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a plain-text file to ingest",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title (defaults to file name)",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag ID to attach (repeatable)",
					},
				},
			},
			{
				Name:   "query",
				Usage:  "Ask a question against ingested documents",
				Action: queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "Question text",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "Requesting user role",
						Value: "user",
					},
					&cli.StringFlag{
						Name:  "conversation",
						Usage: "Conversation ID to read and append history",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Restrict retrieval to documents with this tag ID (repeatable)",
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a document and its vectors",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "doc",
						Usage:    "Document ID",
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

func initCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := ragcore.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer assistant.Close()

	apiKey := os.Getenv("OPENAI_API_KEY")
	repo := assistant.Settings()

	if _, err := repo.SaveLLMSettings(ctx, &core.LLMSettings{
		Provider:    "openai",
		ModelName:   c.String("llm-model"),
		ApiBase:     c.String("llm-host"),
		ApiKey:      apiKey,
		MaxTokens:   1024,
		Temperature: 0.2,
		TopP:        1.0,
		IsActive:    true,
	}); err != nil {
		return fmt.Errorf("saving llm settings: %w", err)
	}

	if _, err := repo.SaveEmbeddingSettings(ctx, &core.EmbeddingSettings{
		Provider:   "openai",
		ModelName:  c.String("embedding-model"),
		ApiBase:    c.String("embedding-host"),
		ApiKey:     apiKey,
		Dimensions: c.Int("dimensions"),
		IsActive:   true,
	}); err != nil {
		return fmt.Errorf("saving embedding settings: %w", err)
	}

	if _, err := repo.SaveChunkingSettings(ctx, &core.ChunkingSettings{
		Strategy:     core.ChunkingStrategyFixed,
		ChunkSize:    c.Int("chunk-size"),
		ChunkOverlap: c.Int("chunk-overlap"),
		IsActive:     true,
	}); err != nil {
		return fmt.Errorf("saving chunking settings: %w", err)
	}

	if _, err := repo.SaveVectorDBSettings(ctx, &core.VectorDBSettings{
		Provider:   core.VectorDBProviderBadger,
		Dimensions: c.Int("dimensions"),
		Metric:     c.String("metric"),
		IsActive:   true,
	}); err != nil {
		return fmt.Errorf("saving vectordb settings: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Configuration saved.")
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	content, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	assistant, err := ragcore.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer assistant.Close()

	title := c.String("title")
	if title == "" {
		title = filepath.Base(c.String("file"))
	}

	doc, err := assistant.AddDocument(ctx, &core.Document{
		Title:    title,
		FileName: filepath.Base(c.String("file")),
		MimeType: "text/plain",
		Status:   core.DocumentStatusPending,
		TagIds:   c.StringSlice("tag"),
	}, string(content))
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	updates, err := assistant.IngestDocument(ctx, doc.Id)
	if err != nil {
		return fmt.Errorf("failed to start ingestion: %w", err)
	}

	for update := range updates {
		if update.Error != "" {
			fmt.Fprintf(os.Stderr, "%s: %s failed: %s\n", doc.Id, update.Stage, update.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: %s %s %.0f%%\n", doc.Id, update.Status, update.Stage, update.Progress*100)
	}

	final, err := assistant.Documents().GetDocument(ctx, doc.Id)
	if err != nil {
		return err
	}
	if final.Status != core.DocumentStatusReady {
		return fmt.Errorf("ingestion ended with status %s: %s", final.Status, final.ErrorMessage)
	}
	fmt.Printf("Ingested %s as document %s (%d chunks)\n", c.String("file"), doc.Id, final.ChunkCount)
	return nil
}

func queryCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := ragcore.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer assistant.Close()

	user := core.User{Id: "cli", Role: c.String("role")}
	result, err := assistant.ProcessQuery(ctx, c.String("question"), c.String("conversation"), user, c.StringSlice("tag"))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, source := range result.Sources {
			fmt.Printf("  [%d] doc %s (score %.2f)\n", i+1, source.DocumentId, source.Score)
		}
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := ragcore.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer assistant.Close()

	if err := assistant.DeleteDocument(ctx, c.String("doc")); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted document %s\n", c.String("doc"))
	return nil
}

func setup(c *cli.Context) error {
	// Environment files are optional; missing ones are not an error.
	_ = godotenv.Load()

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
