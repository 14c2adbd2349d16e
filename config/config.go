package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the Bronisze market index page; archive references are appended to it.
	DefaultBaseURL      = "https://wiescirolnicze.pl/ceny-rolnicze/firmy/bronisze-warszawski-rolno-spozywczy-rynek-hurtowy-sa/"
	DefaultChunkSize    = 50
	DefaultChunkDelay   = 2500 * time.Millisecond
	DefaultRequestDelay = 25 * time.Millisecond
	DefaultTimeout      = 300000 * time.Millisecond
)

// Config holds scraper configuration.
type Config struct {
	BaseURL          string
	ChunkSize        int
	ChunkDelay       time.Duration
	RequestDelay     time.Duration
	Timeout          time.Duration
	RetryFailed      bool
	DedupeMaxSize    int
	OutputDir        string
	OutputFormat     string // csv, json, or dual
	UserAgent        string
	Verbose          bool
	RespectRobotsTxt bool
	MetricsAddr      string
}

// DefaultConfig returns the settings the market site is known to tolerate.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		ChunkSize:        DefaultChunkSize,
		ChunkDelay:       DefaultChunkDelay,
		RequestDelay:     DefaultRequestDelay,
		Timeout:          DefaultTimeout,
		RetryFailed:      true,
		DedupeMaxSize:    100000,
		OutputDir:        "data",
		OutputFormat:     "csv",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.ChunkDelay < 0 {
		return fmt.Errorf("chunk delay cannot be negative")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
