package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Holds everything the server needs to know at startup
type Config struct {
	// interface to bind to
	Host string
	// port to bind to
	Port int
	// directory that the verification file and sitemap are served from
	SiteRoot string
	// path to the homepage template
	TemplatePath string
	// directory backing the /static/ prefix
	StaticDir string
	// path to the optional site metadata file
	SiteInfoPath string
	// name (and route) of the search engine verification file
	VerificationFile string
	// Cache-Control max-age applied to file routes
	StaticMaxAge int
	// S3 bucket that site files are synced from. Empty disables syncing
	AWSBucketName string
	// region of the above bucket
	AWSRegion string
}

const (
	DefaultPort             = 8080
	DefaultVerificationFile = "googlebfe4833e952a6934.html"
	SitemapFile             = "sitemap.xml"
)

// Load reads an optional .env file, then builds and validates a Config from the environment
func Load() (*Config, error) {
	// a missing .env is fine, real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	port, err := getEnvAsIntOrDefault("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	maxAge, err := getEnvAsIntOrDefault("STATIC_MAX_AGE_SECONDS", 3600)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:             getEnvOrDefault("HOST", "0.0.0.0"),
		Port:             port,
		SiteRoot:         getEnvOrDefault("SITE_ROOT", "."),
		TemplatePath:     getEnvOrDefault("TEMPLATE_PATH", "templates/index.html"),
		StaticDir:        getEnvOrDefault("STATIC_DIR", "static"),
		SiteInfoPath:     getEnvOrDefault("SITE_INFO_PATH", "site.json"),
		VerificationFile: getEnvOrDefault("VERIFICATION_FILE", DefaultVerificationFile),
		StaticMaxAge:     maxAge,
		AWSBucketName:    os.Getenv("AWS_BUCKET_NAME"),
		AWSRegion:        getEnvOrDefault("AWS_REGION", "eu-west-2"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can actually be served from
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.SiteRoot == "" {
		return fmt.Errorf("site root must not be empty")
	}
	if c.TemplatePath == "" {
		return fmt.Errorf("template path must not be empty")
	}
	if c.StaticDir == "" {
		return fmt.Errorf("static directory must not be empty")
	}
	if c.VerificationFile == "" || strings.ContainsAny(c.VerificationFile, `/\`) {
		return fmt.Errorf("invalid verification file name: %q", c.VerificationFile)
	}
	if c.StaticMaxAge < 0 {
		return fmt.Errorf("negative static max-age: %d", c.StaticMaxAge)
	}
	return nil
}

// Address returns the host:port pair the server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SyncEnabled reports whether site files should be pulled from S3 at startup
func (c *Config) SyncEnabled() bool {
	return c.AWSBucketName != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
