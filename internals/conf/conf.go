package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buildwatch/buildwatch/internals/env"
	"github.com/buildwatch/buildwatch/internals/timeouts"

	z "github.com/Oudwins/zog"
)

const FileName = "buildwatch.json"

type Config struct {
	Version  string         `json:"-"`
	DataDir  string         `json:"-"`
	API      APIConfig      `json:"api" zog:"api"`
	Projects ProjectsConfig `json:"projects" zog:"projects"`
	Stub     StubConfig     `json:"stub" zog:"stub"`
}

type APIConfig struct {
	RequestTimeout string `json:"request_timeout" zog:"request_timeout"`
}

type ProjectsConfig struct {
	PageSize int `json:"page_size" zog:"page_size"`
}

type StubConfig struct {
	Addr      string `json:"addr" zog:"addr"`
	StepDelay string `json:"step_delay" zog:"step_delay"`
}

var apiSchema = z.Struct(z.Shape{
	"RequestTimeout": z.String().Default("15s").TestFunc(isDuration, z.Message("request_timeout must be a duration")),
})

var projectsSchema = z.Struct(z.Shape{
	"PageSize": z.Int().Default(20).GT(0),
})

var stubSchema = z.Struct(z.Shape{
	"Addr":      z.String().Default("localhost:8000").Trim(),
	"StepDelay": z.String().Default("750ms").TestFunc(isDuration, z.Message("step_delay must be a duration")),
})

var ConfigSchema = z.Struct(z.Shape{
	"API":      apiSchema,
	"Projects": projectsSchema,
	"Stub":     stubSchema,
})

var config *Config

func GetConfig() *Config {
	if config == nil {
		loaded, err := Load(env.Get().DATA_DIR)
		if err != nil {
			log.Fatal("[Buildwatch] Failed to load config", err)
		}
		config = loaded
	}
	return config
}

// Load reads <dataDir>/buildwatch.json over the schema defaults. A missing
// or empty file yields the defaults.
func Load(dataDir string) (*Config, error) {
	dataDir, err := expandPath(dataDir)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{}
	data, err := os.ReadFile(filepath.Join(filepath.Clean(dataDir), FileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil && strings.TrimSpace(string(data)) != "" {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	parsed := &Config{}
	if issues := ConfigSchema.Parse(payload, parsed); issues != nil {
		return nil, fmt.Errorf("invalid config:\n%s", z.Issues.Prettify(issues))
	}
	parsed.Version = "0.1.0"
	parsed.DataDir = filepath.Clean(dataDir)
	return parsed, nil
}

func (c APIConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return timeouts.Request
	}
	return d
}

func (c StubConfig) Delay() time.Duration {
	d, err := time.ParseDuration(c.StepDelay)
	if err != nil || d < 0 {
		return timeouts.StubStep
	}
	return d
}

func isDuration(valPtr *string, ctx z.Ctx) bool {
	_, err := time.ParseDuration(*valPtr)
	return err == nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
