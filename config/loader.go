package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/kbukum/mrstream/logger"
	"github.com/kbukum/mrstream/util"
)

// Resolver handles finding and resolving config and env files.
type Resolver struct {
	Fs afero.Fs
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles finds config and env files for a job.
// Returns explicit paths if provided, otherwise searches for them.
func (r *Resolver) ResolveFiles(name string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.findConfigFile(name)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.findEnvFile(name)
	}

	return resolved
}

// findConfigFile searches for <name>.yml and config.yml in standard locations.
func (r *Resolver) findConfigFile(name string) string {
	searchPaths := []string{
		fmt.Sprintf("./%s.yml", name),
		fmt.Sprintf("./%s.yaml", name),
		fmt.Sprintf("./config/%s.yml", name),
		fmt.Sprintf("./cmd/%s/config.yml", name),
		"./config/config.yml",
		"./config.yml",
	}

	for _, path := range searchPaths {
		if r.exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for .env files in standard locations.
func (r *Resolver) findEnvFile(name string) string {
	envFiles := []string{
		fmt.Sprintf(".env.%s", name),
		".env",
	}

	for _, envFile := range envFiles {
		for _, basePath := range []string{".", "./config", fmt.Sprintf("./cmd/%s", name)} {
			fullPath := fmt.Sprintf("%s/%s", basePath, envFile)
			if r.exists(fullPath) {
				return fullPath
			}
		}
	}
	return ""
}

func (r *Resolver) exists(path string) bool {
	ok, err := afero.Exists(r.Fs, path)
	return err == nil && ok
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	Fs         afero.Fs
	ConfigFile string   // Direct config file path (optional)
	EnvFile    string   // Direct env file path (optional)
	EnvPrefix  string   // Only variables with this prefix are bound; defaults to the upper-cased name
	Environ    []string // KEY=VALUE pairs; defaults to os.Environ()
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFs sets the file system config and env files are read from.
func WithFs(fs afero.Fs) LoaderOption {
	return func(lc *LoaderConfig) { lc.Fs = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithEnviron replaces the process environment as the variable source.
func WithEnviron(environ []string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environ = environ }
}

// LoadConfig loads configuration for a job into the provided cfg struct.
// It reads the YAML config file, then overlays prefixed environment
// variables. Variables from the .env file fill in only what the environment
// leaves unset. The process environment is never modified.
func LoadConfig(name string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.Fs == nil {
		lc.Fs = afero.NewOsFs()
	}
	if lc.Environ == nil {
		lc.Environ = os.Environ()
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	}

	resolver := &Resolver{Fs: lc.Fs}
	files := resolver.ResolveFiles(name, lc)

	return loadFromResolvedFiles(name, cfg, files, lc)
}

// loadFromResolvedFiles loads configuration from specific files.
func loadFromResolvedFiles(name string, cfg any, files ResolvedFiles, lc LoaderConfig) error {
	log := logger.Get("config")
	v := viper.New()
	v.SetFs(lc.Fs)

	// 1. Load YAML config first (base configuration)
	if files.ConfigFile != "" {
		if ok, _ := afero.Exists(lc.Fs, files.ConfigFile); ok {
			v.SetConfigFile(files.ConfigFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
			}
			log.Debug("config file loaded", logger.Fields("path", files.ConfigFile))
		} else {
			log.Warn("config file not found", logger.Fields("path", files.ConfigFile))
		}
	}

	// 2. Collect environment, then let the .env file fill the gaps
	env := environMap(lc.Environ)
	if files.EnvFile != "" {
		if err := mergeEnvFile(lc.Fs, files.EnvFile, env); err != nil {
			log.Warn("failed to load .env file", logger.Fields("path", files.EnvFile, "error", err.Error()))
		}
	}

	// 3. Overlay prefixed variables
	bindEnvVars(v, env, lc.EnvPrefix)

	// 4. Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for %s: %w", name, err)
	}

	return nil
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	return env
}

func mergeEnvFile(fs afero.Fs, path string, env map[string]string) error {
	if ok, _ := afero.Exists(fs, path); !ok {
		return nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	parsed, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, v := range parsed {
		if _, set := env[k]; !set {
			env[k] = v
		}
	}
	return nil
}

// bindEnvVars sets every PREFIX_* variable on v under each nested key form
// its name could stand for.
func bindEnvVars(v *viper.Viper, env map[string]string, prefix string) {
	prefix += "_"
	keys := make([]string, 0, len(env))
	for k := range env {
		if strings.HasPrefix(k, prefix) && len(k) > len(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, variant := range generateEnvKeyVariants(strings.TrimPrefix(key, prefix)) {
			v.Set(variant, env[key])
		}
	}
}

// generateEnvKeyVariants creates all possible key variants for environment variable binding.
// Examples:
//
//	LOGGING_LEVEL -> [logging_level, logging.level]
//	LOCAL_MAX_INPUT_LINES -> [local_max_input_lines, local.max.input.lines, local.max_input_lines, ...]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	// Progressive nesting: a.b_c_d, a.b.c_d, ...
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	return util.Unique(variants)
}
