package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file lookups for the loader (swappable in tests).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem against the OS.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Option customizes a Load call.
type Option func(*loadOptions)

type loadOptions struct {
	fs         FileSystem
	configFile string
	envFile    string
}

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) Option {
	return func(o *loadOptions) { o.fs = fs }
}

// WithConfigFile sets an explicit config file path, skipping the search.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping the search.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// Load populates cfg for the named application. It searches for a config.yml
// and a .env file in standard locations (unless given explicit paths), binds
// environment variables on top, and unmarshals the merged result.
func Load(name string, cfg any, opts ...Option) error {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = RealFileSystem{}
	}
	if o.configFile == "" {
		o.configFile = findFirst(o.fs, configSearchPaths(name))
	}
	if o.envFile == "" {
		o.envFile = findFirst(o.fs, envSearchPaths(name))
	}

	v := viper.New()

	if o.configFile != "" && o.fs.Exists(o.configFile) {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", o.configFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	if o.envFile != "" && o.fs.Exists(o.envFile) {
		if err := o.fs.LoadEnv(o.envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", o.envFile, err)
		}
		// Pick up variables the .env file introduced.
		bindEnvVars(v)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", name, err)
	}
	return nil
}

func configSearchPaths(name string) []string {
	return []string{
		fmt.Sprintf("./config/%s.yml", name),
		fmt.Sprintf("./%s.yml", name),
		"./config/config.yml",
		"./config.yml",
	}
}

func envSearchPaths(name string) []string {
	return []string{
		fmt.Sprintf("./.env.%s", name),
		"./.env",
		fmt.Sprintf("./config/.env.%s", name),
		"./config/.env",
	}
}

func findFirst(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// bindEnvVars maps UPPER_CASE_WITH_UNDERSCORES environment variables onto
// the nested key forms viper understands, so CLIENT_BASE_URL can override
// client.base_url without explicit per-key binding.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		for _, variant := range keyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// keyVariants expands one env key into the nesting splits it could address.
// CLIENT_BASE_URL -> [client_base_url, client.base.url, client.base_url,
// client.base.url -> ...]: every prefix split is tried because the loader
// cannot know which underscores separate sections from field names.
func keyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	seen := map[string]bool{}
	var variants []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			variants = append(variants, s)
		}
	}

	add(lower)
	add(strings.ReplaceAll(lower, "_", "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}
