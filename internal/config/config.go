package config

import (
	"time"

	"github.com/tetelio/asset-pipeline/transform"
)

type Config struct {
	General    `mapstructure:"general"`
	Encryption `mapstructure:"encryption"`
	Bucket     `mapstructure:"bucket"`
	AWS        `mapstructure:"aws"`
	Paths      `mapstructure:"paths"`
	Workers    `mapstructure:"workers"`
	Fetch      `mapstructure:"fetch"`
	Tracing    `mapstructure:"tracing"`
}

type General struct {
	Debug bool `mapstructure:"debug"`
}

// Encryption is left unchecked when empty so that commands which never
// transform bytes (e.g. timing) still load; transform.New rejects a missing key
// or round count.
type Encryption struct {
	Key          string `mapstructure:"key"`
	Rounds       int    `mapstructure:"rounds" validate:"gte=0"`
	MinKeyLength int    `mapstructure:"min_key_length" validate:"gte=0"`
	KeyPolicy    string `mapstructure:"key_policy" validate:"oneof=warn reject"`
	Parallelism  int    `mapstructure:"parallelism" validate:"gte=0"`
}

type Bucket struct {
	Name string `mapstructure:"name"`
}

type AWS struct {
	Profile string `mapstructure:"profile"`
	Region  string `mapstructure:"region"`
}

type Paths struct {
	Assets       string `mapstructure:"assets" validate:"required"`
	Encrypted    string `mapstructure:"encrypted" validate:"required"`
	Decrypted    string `mapstructure:"decrypted" validate:"required"`
	TimeAnalysis string `mapstructure:"time_analysis" validate:"required"`
	TimingFile   string `mapstructure:"timing_file" validate:"required"`
}

type Workers struct {
	Transform int `mapstructure:"transform" validate:"gte=0"`
	Upload    int `mapstructure:"upload" validate:"gte=0"`
}

type Fetch struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Tracing is off while Endpoint is empty.
type Tracing struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// TransformConfig returns the engine settings. The policy is assumed valid,
// Load has already checked it.
func (c *Config) TransformConfig() transform.Config {
	policy, _ := transform.ParseKeyPolicy(c.Encryption.KeyPolicy)
	return transform.Config{
		Key:          []byte(c.Encryption.Key),
		Rounds:       c.Encryption.Rounds,
		MinKeyLength: c.Encryption.MinKeyLength,
		Policy:       policy,
		Parallelism:  c.Encryption.Parallelism,
	}
}

// TimingPath is where the timing records of an encrypt run are written.
func (c *Config) TimingPath() string {
	return joinPath(c.Paths.TimeAnalysis, c.Paths.TimingFile)
}
