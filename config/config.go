package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every knob the pipeline needs. Values come from defaults,
// then a .env file, then process environment variables, in that order.
type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// LLM backend (OpenAI-compatible endpoint)
	LLMBaseURL string `json:"llm_base_url"`
	LLMAPIKey  string `json:"llm_api_key"`
	LLMModel   string `json:"llm_model"`

	// Financial data providers
	PolygonAPIKey string `json:"polygon_api_key"`
	TavilyAPIKey  string `json:"tavily_api_key"`

	// SEC EDGAR requires a descriptive User-Agent with contact info
	SECUserAgent string `json:"sec_user_agent"`

	CacheEnabled  bool `json:"cache_enabled"`
	CacheTTLHours int  `json:"cache_ttl_hours"`
	OnlineTools   bool `json:"online_tools"`
	Debug         bool `json:"debug"`
}

// DefaultConfig builds a config from defaults overridden by the environment.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		LLMBaseURL: "https://api.deepseek.com/v1",
		LLMModel:   "deepseek-chat",

		SECUserAgent: "FinSight research@finsight.example.com",

		CacheEnabled:  true,
		CacheTTLHours: 24,
		OnlineTools:   true,
		Debug:         false,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("LLM_API_KEY"); val != "" {
		c.LLMAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" && c.LLMAPIKey == "" {
		c.LLMAPIKey = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("POLYGON_API_KEY"); val != "" {
		c.PolygonAPIKey = val
	}
	if val := os.Getenv("TAVILY_API_KEY"); val != "" {
		c.TavilyAPIKey = val
	}
	if val := os.Getenv("SEC_API_USER_AGENT"); val != "" {
		c.SECUserAgent = val
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		c.CacheEnabled = parseBool(val, c.CacheEnabled)
	}
	if val := os.Getenv("CACHE_TTL_HOURS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.CacheTTLHours = n
		}
	}
	if val := os.Getenv("ONLINE_TOOLS"); val != "" {
		c.OnlineTools = parseBool(val, c.OnlineTools)
	}
	if val := os.Getenv("DEBUG"); val != "" {
		c.Debug = parseBool(val, c.Debug)
	}
}

// Validate checks the strictly required credentials once at startup.
// A missing LLM key is fatal: without it neither planning nor research
// synthesis can run. Provider keys are optional; their absence surfaces
// later as a provider fallback reason, not an error here.
func (c *Config) Validate() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("configuration error: LLM API key is required (set LLM_API_KEY or DEEPSEEK_API_KEY)")
	}
	return nil
}

// EnsureDirectories creates the data and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.DataCacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
