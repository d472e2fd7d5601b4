package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/custkit/custkit/config"
	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/dataset"
	"github.com/custkit/custkit/engine"
	"github.com/custkit/custkit/feedback"
	"github.com/custkit/custkit/narrator"
	"github.com/custkit/custkit/persona"
	"github.com/custkit/custkit/server"
	"github.com/custkit/custkit/store"
)

// newApp 按配置装配完整应用：事件表、引擎、画像、叙述、曝光存储。
// recommend/analyze 一次性命令与 serve 常驻服务共用同一装配路径。
func newApp(cmd *cobra.Command) (*server.Server, *config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	var events []core.Event
	if cfg.Data.Events != "" {
		loaded, err := dataset.LoadFile(cfg.Data.Events)
		if err != nil {
			return nil, nil, fmt.Errorf("load events: %w", err)
		}
		events = loaded
	}

	eng := engine.New(cfg.EngineOptions(), events...)

	rules := persona.DefaultRules()
	if cfg.Persona.RulesFile != "" {
		loaded, err := persona.LoadRules(cfg.Persona.RulesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load persona rules: %w", err)
		}
		rules = loaded
	}
	evaluator, err := persona.NewEvaluator(rules)
	if err != nil {
		return nil, nil, err
	}

	kv, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	srv := &server.Server{
		Engine:    eng,
		Narrator:  narrator.New(eng),
		Evaluator: evaluator,
		Collector: feedback.NewStoreCollector(kv, ""),
		Logger:    logger,
	}
	return srv, cfg, nil
}

// newStore 按配置选择曝光日志后端：memory（默认）或 redis。
func newStore(cfg *config.Config) (core.KeyValueStore, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisDB)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
