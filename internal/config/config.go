package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/NewsWatch/internal/collector"
	"github.com/LJTian/NewsWatch/internal/scheduler"
	"github.com/LJTian/NewsWatch/internal/storage"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SelectorsExtractor 由配置文件提供选择器链
const SelectorsExtractor = collector.SelectorsExtractorID

// Source 一个被轮询的首页
type Source struct {
	Name      string     `yaml:"name"`
	URL       string     `yaml:"url"`
	Extractor string     `yaml:"extractor"`
	Selectors *Selectors `yaml:"selectors,omitempty"`
}

// Selectors 每个字段一条 CSS 选择器链
type Selectors struct {
	Title   []string `yaml:"title"`
	Summary []string `yaml:"summary"`
	Author  []string `yaml:"author"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

type Config struct {
	PollInterval   time.Duration
	CronSpec       string
	RequestTimeout time.Duration
	UserAgent      string

	SourcesFile string
	Sources     []Source

	RedisAddr    string
	RedisListKey string
	RedisListMax int

	PostgresDSN string
}

// DefaultSources 内置的三个新闻站点
func DefaultSources() []Source {
	return []Source{
		{Name: "theintercept", URL: "https://theintercept.com/", Extractor: "theintercept"},
		{Name: "observer", URL: "https://observer.com/", Extractor: "observer"},
		{Name: "chicagoreader", URL: "https://chicagoreader.com/", Extractor: "chicagoreader"},
	}
}

// LoadDotEnv 当前目录存在 .env 时加载，不覆盖已有环境变量
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warn: load .env: %v", err)
	}
}

// Load 从环境变量读取配置，配置错误只在启动时出现
func Load() (*Config, error) {
	interval, err := getSeconds("POLL_INTERVAL", scheduler.DefaultInterval)
	if err != nil {
		return nil, err
	}
	timeout, err := getSeconds("REQUEST_TIMEOUT", collector.DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	listMax, err := getInt("REDIS_LIST_MAX", storage.DefaultListMax)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		PollInterval:   interval,
		CronSpec:       getEnv("CRON_SPEC", ""),
		RequestTimeout: timeout,
		UserAgent:      getEnv("USER_AGENT", collector.DefaultUserAgent),
		SourcesFile:    getEnv("SOURCES_FILE", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisListKey:   getEnv("REDIS_LIST_KEY", storage.DefaultListKey),
		RedisListMax:   listMax,
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
	}

	if cfg.SourcesFile != "" {
		cfg.Sources, err = LoadSources(cfg.SourcesFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("config loaded: sources=%d interval=%s cron=%q timeout=%s",
		len(cfg.Sources), cfg.PollInterval, cfg.CronSpec, cfg.RequestTimeout)
	return cfg, nil
}

// LoadSources 读取 YAML 格式的源列表
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

func ParseSources(data []byte) ([]Source, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	for i := range f.Sources {
		f.Sources[i].Name = strings.TrimSpace(f.Sources[i].Name)
		f.Sources[i].URL = strings.TrimSpace(f.Sources[i].URL)
		f.Sources[i].Extractor = strings.TrimSpace(f.Sources[i].Extractor)
	}
	return f.Sources, nil
}

// Validate 不检查提取器 id 是否已注册，交给组装阶段
func (c *Config) Validate() error {
	if c.PollInterval <= 0 && c.CronSpec == "" {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source #%d: name is required", i+1)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %q: duplicate name", s.Name)
		}
		seen[s.Name] = true

		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source %q: invalid url %q", s.Name, s.URL)
		}
		if s.Extractor == "" {
			return fmt.Errorf("source %q: extractor is required", s.Name)
		}
		if s.Extractor == SelectorsExtractor {
			if s.Selectors == nil || len(s.Selectors.Title) == 0 || len(s.Selectors.Summary) == 0 || len(s.Selectors.Author) == 0 {
				return fmt.Errorf("source %q: selectors extractor needs title, summary and author chains", s.Name)
			}
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getSeconds 读取以秒为单位的整数
func getSeconds(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
