package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shamanec/GADS-xctest-runner/artifacts"
	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/logger"
)

const (
	DefaultConfigPath       = "./configs/runner.yaml"
	DefaultResultBundleName = "test-results"
	DefaultMaxBootedSims    = 4
	DefaultPort             = "10001"
)

// Config holds every input of a run plus the runner's own settings
type Config struct {
	Workspace        string `yaml:"workspace"`
	Project          string `yaml:"project"`
	Scheme           string `yaml:"scheme"`
	Configuration    string `yaml:"configuration"`
	SDK              string `yaml:"sdk"`
	Arch             string `yaml:"arch"`
	Destination      string `yaml:"destination"`
	CodeSignIdentity string `yaml:"code_sign_identity"`
	DevelopmentTeam  string `yaml:"development_team"`
	ResultBundlePath string `yaml:"result_bundle_path"`
	ResultBundleName string `yaml:"result_bundle_name"`

	BootSimulator       bool   `yaml:"boot_simulator"`
	RecordVideo         string `yaml:"record_video"`
	MaxBootedSimulators int    `yaml:"max_booted_simulators"`

	Artifacts artifacts.Config `yaml:"artifacts"`
	RethinkDB RethinkDB        `yaml:"rethinkdb"`

	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

type RethinkDB struct {
	Address  string `yaml:"address"`
	Database string `yaml:"database"`
}

func Default() Config {
	host, _ := os.Hostname()
	return Config{
		ResultBundleName:    DefaultResultBundleName,
		MaxBootedSimulators: DefaultMaxBootedSims,
		RethinkDB:           RethinkDB{Database: "xctest"},
		Host:                host,
		Port:                DefaultPort,
		LogLevel:            "info",
		LogFile:             "./logs/runner.log",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not an error
// when allowMissing is set.
func Load(path string, allowMissing bool) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("Could not decode config `%s` - %w", path, err)
	}
	return cfg, nil
}

// Input reads an action input the way GitHub Actions exposes them,
// `INPUT_` followed by the upper-cased name with spaces turned into underscores
func Input(getenv func(string) string, name string) string {
	key := "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
	return strings.TrimSpace(getenv(key))
}

// StringInputs maps the names of the string inputs to the fields they set
func (c *Config) StringInputs() map[string]*string {
	return map[string]*string{
		"workspace":            &c.Workspace,
		"project":              &c.Project,
		"scheme":               &c.Scheme,
		"configuration":        &c.Configuration,
		"sdk":                  &c.SDK,
		"arch":                 &c.Arch,
		"destination":          &c.Destination,
		"code-sign-identity":   &c.CodeSignIdentity,
		"development-team":     &c.DevelopmentTeam,
		"result-bundle-path":   &c.ResultBundlePath,
		"result-bundle-name":   &c.ResultBundleName,
		"record-video":         &c.RecordVideo,
		"artifacts-endpoint":   &c.Artifacts.Endpoint,
		"artifacts-access-key": &c.Artifacts.AccessKey,
		"artifacts-secret-key": &c.Artifacts.SecretKey,
		"artifacts-region":     &c.Artifacts.Region,
		"artifacts-bucket":     &c.Artifacts.Bucket,
		"rethinkdb-address":    &c.RethinkDB.Address,
		"rethinkdb-database":   &c.RethinkDB.Database,
		"log-level":            &c.LogLevel,
		"log-file":             &c.LogFile,
		"port":                 &c.Port,
	}
}

// ApplyInputs overrides fields with the inputs that are set in the environment
func (c *Config) ApplyInputs(getenv func(string) string) error {
	for name, field := range c.StringInputs() {
		if v := Input(getenv, name); v != "" {
			*field = v
		}
	}

	bools := map[string]*bool{
		"boot-simulator":    &c.BootSimulator,
		"artifacts-use-ssl": &c.Artifacts.UseSSL,
	}
	for name, field := range bools {
		v := Input(getenv, name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse input %s: %w", name, err)
		}
		*field = b
	}

	if v := Input(getenv, "max-booted-simulators"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse input max-booted-simulators: %w", err)
		}
		c.MaxBootedSimulators = i
	}
	return nil
}

// ParsedDestination returns the destination input parsed, empty when none was given
func (c Config) ParsedDestination() (destination.Destination, error) {
	if strings.TrimSpace(c.Destination) == "" {
		return destination.Destination{}, nil
	}
	return destination.Parse(c.Destination)
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if _, err := c.ParsedDestination(); err != nil {
		return err
	}
	if c.Workspace != "" && c.Project != "" {
		return errors.New("workspace and project are mutually exclusive")
	}
	if c.Artifacts.Enabled() {
		if err := c.Artifacts.Validate(); err != nil {
			return fmt.Errorf("artifacts: %w", err)
		}
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unsupported log level `%s`", c.LogLevel)
	}
	if c.MaxBootedSimulators < 1 {
		return errors.New("max booted simulators must be at least 1")
	}
	return nil
}

func (c Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(c)
}
