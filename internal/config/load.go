package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/tetelio/asset-pipeline/transform"
)

// envBindings maps config keys to the environment variables they are read from.
var envBindings = map[string]string{
	"general.debug":             "PIPELINE_DEBUG",
	"encryption.key":            "ENCRYPTION_KEY",
	"encryption.rounds":         "ENCRYPTION_ROUNDS",
	"encryption.min_key_length": "ENCRYPTION_MIN_KEY_LENGTH",
	"encryption.key_policy":     "ENCRYPTION_KEY_POLICY",
	"encryption.parallelism":    "ENCRYPTION_PARALLELISM",
	"bucket.name":               "BUCKET_NAME",
	"aws.profile":               "AWS_PROFILE",
	"aws.region":                "AWS_REGION",
	"paths.assets":              "ASSETS_DIR",
	"paths.encrypted":           "ENCRYPTED_ASSETS_DIR",
	"paths.decrypted":           "DECRYPTED_ASSETS_DIR",
	"paths.time_analysis":       "TIME_ANALYSIS_DIR",
	"paths.timing_file":         "TIME_ANALYSIS_FILE",
	"workers.transform":         "TRANSFORM_WORKERS",
	"workers.upload":            "UPLOAD_WORKERS",
	"fetch.timeout":             "FETCH_TIMEOUT",
	"tracing.endpoint":          "OTEL_EXPORTER_OTLP_ENDPOINT",
	"tracing.insecure":          "OTEL_EXPORTER_OTLP_INSECURE",
}

func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("encryption.min_key_length", transform.MinKeyLength)
	v.SetDefault("encryption.key_policy", string(transform.KeyPolicyWarn))
	v.SetDefault("encryption.parallelism", 0)
	v.SetDefault("paths.assets", "assets")
	v.SetDefault("paths.encrypted", "encrypted_assets")
	v.SetDefault("paths.decrypted", "decrypted_assets")
	v.SetDefault("paths.time_analysis", "time_analysis")
	v.SetDefault("paths.timing_file", "chapter-i.json")
	v.SetDefault("workers.transform", 0)
	v.SetDefault("workers.upload", 0)
	v.SetDefault("fetch.timeout", "5m")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
}

// Load builds the configuration from, highest precedence first, the process
// environment, the dotenv file at envFile and the defaults. A missing envFile is
// not an error.
func Load(afs afero.Fs, envFile string) (*Config, error) {
	v := viper.New()
	setDefaultConfig(v)

	dotenv, err := readDotenv(afs, envFile)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(dotenvToConfigMap(dotenv)); err != nil {
		return nil, fmt.Errorf("failed to merge %s: %w", envFile, err)
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// keys copied from files often carry a trailing newline
	cfg.Encryption.Key = strings.TrimSpace(cfg.Encryption.Key)
	cfg.Encryption.KeyPolicy = strings.ToLower(strings.TrimSpace(cfg.Encryption.KeyPolicy))
	if cfg.Encryption.KeyPolicy == "" {
		cfg.Encryption.KeyPolicy = string(transform.KeyPolicyWarn)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func readDotenv(afs afero.Fs, envFile string) (map[string]string, error) {
	if envFile == "" {
		return nil, nil
	}
	f, err := afs.Open(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zlog.Sugar().Debugf("no env file at %s, using environment and defaults", envFile)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", envFile, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", envFile, err)
	}
	return values, nil
}

// dotenvToConfigMap nests the known variables of a dotenv file under their config keys.
func dotenvToConfigMap(values map[string]string) map[string]interface{} {
	out := make(map[string]interface{})
	for key, env := range envBindings {
		value, ok := values[env]
		if !ok {
			continue
		}
		section, field, _ := strings.Cut(key, ".")
		sub, ok := out[section].(map[string]interface{})
		if !ok {
			sub = make(map[string]interface{})
			out[section] = sub
		}
		sub[field] = value
	}
	return out
}

func joinPath(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}
