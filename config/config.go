// Package config 是应用配置（YAML）。
// 所有字段都有零值默认：空配置文件与不传配置文件都可运行。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/engine"
)

// Config 是顶层配置结构。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Engine  EngineConfig  `yaml:"engine"`
	Persona PersonaConfig `yaml:"persona"`
	Store   StoreConfig   `yaml:"store"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // 默认 ":8080"
}

type DataConfig struct {
	Events string `yaml:"events"` // 事件表 CSV 路径
}

// EngineConfig 是推荐引擎参数。混合权重与平滑常量是调参值，
// 默认 0.7/0.3/0.1，见 engine 包。
type EngineConfig struct {
	SimWeight          float64 `yaml:"sim_weight"`
	PopWeight          float64 `yaml:"pop_weight"`
	ColdStartSmoothing float64 `yaml:"cold_start_smoothing"`
	RebuildEvery       int     `yaml:"rebuild_every"`

	// EventWeights 覆盖事件类型基础权重，如 {view: 1.0, cart: 2.0, purchase: 3.0}
	EventWeights map[string]float64 `yaml:"event_weights"`

	DecayFloor      float64 `yaml:"decay_floor"`
	DecayWindowDays int     `yaml:"decay_window_days"`
}

type PersonaConfig struct {
	// RulesFile 为空时使用内置规则表
	RulesFile string `yaml:"rules_file"`
}

type StoreConfig struct {
	// Backend: "memory"（默认）或 "redis"
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// Default 返回全默认配置。
func Default() *Config {
	return &Config{}
}

// Load 从 YAML 文件加载配置。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// ListenAddr 返回服务监听地址，默认 ":8080"。
func (c *Config) ListenAddr() string {
	if c.Server.Addr == "" {
		return ":8080"
	}
	return c.Server.Addr
}

// EngineOptions 把配置折算为引擎参数。
func (c *Config) EngineOptions() engine.Options {
	opts := engine.Options{
		SimWeight:          c.Engine.SimWeight,
		PopWeight:          c.Engine.PopWeight,
		ColdStartSmoothing: c.Engine.ColdStartSmoothing,
		RebuildEvery:       c.Engine.RebuildEvery,
	}
	if len(c.Engine.EventWeights) > 0 {
		weights := make(map[core.EventType]float64, len(c.Engine.EventWeights))
		for t, w := range c.Engine.EventWeights {
			weights[core.EventType(t)] = w
		}
		opts.Builder.EventWeights = weights
	}
	if c.Engine.DecayFloor > 0 {
		opts.Builder.DecayFloor = c.Engine.DecayFloor
	}
	if c.Engine.DecayWindowDays > 0 {
		opts.Builder.DecayWindow = time.Duration(c.Engine.DecayWindowDays) * 24 * time.Hour
	}
	return opts
}
