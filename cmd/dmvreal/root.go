package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/KCD1111/DMVREAL/internal/config"
	"github.com/KCD1111/DMVREAL/internal/extract"
	"github.com/KCD1111/DMVREAL/internal/generate"
	"github.com/KCD1111/DMVREAL/internal/normalize"
	"github.com/KCD1111/DMVREAL/internal/ocr"
	"github.com/KCD1111/DMVREAL/internal/pipeline"
	"github.com/KCD1111/DMVREAL/internal/schema"
	"github.com/KCD1111/DMVREAL/internal/store"
	"github.com/KCD1111/DMVREAL/internal/validate"
)

var cfgFile string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dmvreal",
		Short:         "Driver's license OCR extraction service",
		Long:          "dmvreal OCRs driver's license documents and extracts structured, validated records.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	cmd.AddCommand(serveCmd(), processCmd(), exportCmd())
	return cmd
}

// app is everything a command needs after wiring.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	processor *pipeline.Processor
	store     store.Store
}

// buildApp assembles the pipeline from configuration. withStore=false skips
// persistence for one-shot runs.
func buildApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(cfg.Log)

	reg := schema.Default()

	ocrx := ocr.New(ocr.Config{
		TesseractCmd:     cfg.OCR.TesseractCmd,
		PdftoppmCmd:      cfg.OCR.PdftoppmCmd,
		DPI:              cfg.OCR.DPI,
		Lang:             cfg.OCR.Lang,
		MaxParallelPages: cfg.OCR.MaxParallelPages,
	}, nil, log)
	if err := ocrx.CheckTools(); err != nil {
		return nil, err
	}

	extractor, err := buildExtractor(ctx, cfg, reg, log)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if withStore {
		st, err = buildStore(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
	}

	norm := normalize.New(reg, log)
	val := validate.New(reg, log,
		validate.WithLowConfidenceThreshold(cfg.Validate.LowConfidenceThreshold))

	proc := pipeline.New(ocrx, extractor, norm, val, reg, st, log)
	return &app{cfg: cfg, log: log, processor: proc, store: st}, nil
}

func buildExtractor(ctx context.Context, cfg *config.Config, reg *schema.Registry, log *slog.Logger) (extract.FieldExtractor, error) {
	rules := extract.NewRuleExtractor(extract.Config{LicensePrefix: cfg.Extractor.LicensePrefix}, log)

	client, err := buildGenerateClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Warn("extract.model_disabled")
		return extract.NewChain(rules, nil, reg, log), nil
	}

	model, err := extract.NewModelExtractor(client, extract.DefaultPromptTemplate(), reg, cfg.Extractor.Correct, log)
	if err != nil {
		return nil, err
	}
	return extract.NewChain(model, rules, reg, log), nil
}

func buildGenerateClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (generate.Client, error) {
	opts := generate.DefaultOptions()
	if cfg.Generate.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(cfg.Generate.TimeoutSeconds) * time.Second
	}

	switch cfg.Generate.Backend {
	case "ollama":
		return generate.NewOllama(generate.OllamaConfig{
			BaseURL:           cfg.Generate.OllamaURL,
			Model:             cfg.Generate.OllamaModel,
			Options:           opts,
			RequestsPerSecond: cfg.Generate.RequestsPerSecond,
		}, log), nil
	case "gemini":
		return generate.NewGemini(ctx, generate.GeminiConfig{
			APIKey:  cfg.Generate.GeminiAPIKey,
			Model:   cfg.Generate.GeminiModel,
			Options: opts,
		}, log)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generate backend %q", cfg.Generate.Backend)
	}
}

func buildStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath, log)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.PostgresDSN, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
