// internal/config/config.go
//
// This package handles configuration and the .survey directory structure.
// Every project that runs the survey gets a .survey/ folder holding the
// config file, the journey log and (for the sqlite sink) the response DB.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// SurveyDir is the name of the directory we create in each project
	SurveyDir = ".survey"

	// TokenEnv holds the content-repository credential. It is never read
	// from the config file.
	TokenEnv = "SURVEY_GITHUB_TOKEN"

	DriverLocal  = "local"
	DriverGitHub = "github"
	DriverS3     = "s3"
	DriverSQLite = "sqlite"

	defaultSeed          = "carsharing-actions"
	defaultGitHubAPI     = "https://api.github.com"
	defaultGitHubPath    = "responses/"
	defaultGitHubTimeout = 15 * time.Second
	defaultS3Region      = "us-east-1"
	defaultServerHost    = "127.0.0.1"
	defaultServerPort    = 8787
	defaultSessionTTL    = 2 * time.Hour
)

const defaultProjectConfigYAML = `# roadmap survey configuration
version: 1

survey:
  # action: respondents check the actions their agency can take.
  # opportunity: every barrier/opportunity pair in the roadmap is submitted.
  variant: action
  # Bundled preset (carsharing-actions, carsharing-opportunities) or a path
  # to a seed YAML file relative to the project directory.
  seed: carsharing-actions

sink:
  # local | github | s3 | sqlite
  driver: local
  local:
    dir: .
  github:
    # The token is read from SURVEY_GITHUB_TOKEN.
    api_url: https://api.github.com
    repository: ""
    path: responses/
  s3:
    bucket: ""
    region: us-east-1
    prefix: responses/
  sqlite:
    path: .survey/responses.db

server:
  host: 127.0.0.1
  port: 8787
`

// ConfigurationError reports settings that must be fixed before the survey
// can start. It is fatal at startup.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// SurveyConfig selects the survey variant and its seed table.
type SurveyConfig struct {
	Variant string `yaml:"variant"`
	Title   string `yaml:"title,omitempty"`
	Seed    string `yaml:"seed"`
}

// LocalSink writes responses into a directory.
type LocalSink struct {
	Dir string `yaml:"dir"`
}

// GitHubSink uploads responses through the repository contents API.
type GitHubSink struct {
	APIURL     string        `yaml:"api_url"`
	Repository string        `yaml:"repository"`
	Path       string        `yaml:"path"`
	Branch     string        `yaml:"branch,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	Token      string        `yaml:"-"`
}

// Owner returns the owner half of Repository.
func (g GitHubSink) Owner() string {
	owner, _, _ := strings.Cut(g.Repository, "/")
	return owner
}

// Repo returns the repository half of Repository.
func (g GitHubSink) Repo() string {
	_, repo, _ := strings.Cut(g.Repository, "/")
	return repo
}

// S3Sink stores responses as objects in a bucket.
type S3Sink struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// SQLiteSink appends response rows to a database file.
type SQLiteSink struct {
	Path string `yaml:"path"`
}

// SinkConfig picks and configures the persistence target.
type SinkConfig struct {
	Driver string     `yaml:"driver"`
	Local  LocalSink  `yaml:"local"`
	GitHub GitHubSink `yaml:"github"`
	S3     S3Sink     `yaml:"s3"`
	SQLite SQLiteSink `yaml:"sqlite"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	SessionTTL time.Duration `yaml:"session_ttl,omitempty"`
}

// ProjectConfig models .survey/config.yaml.
type ProjectConfig struct {
	Version int          `yaml:"version"`
	Survey  SurveyConfig `yaml:"survey"`
	Sink    SinkConfig   `yaml:"sink"`
	Server  ServerConfig `yaml:"server"`
}

// Config holds the runtime configuration for the survey.
type Config struct {
	// ProjectDir is the directory the survey was started from
	ProjectDir string

	// SurveyProjectDir is ProjectDir/.survey
	SurveyProjectDir string

	Project ProjectConfig
}

// InitSurveyDir creates the .survey directory structure in the given project
// directory and writes a commented default config if none exists.
//
// Structure created:
// .survey/
// ├── config.yaml
// └── logs/        <- journey.log and server.log
func InitSurveyDir(projectDir string) error {
	surveyDir := filepath.Join(projectDir, SurveyDir)
	if err := os.MkdirAll(filepath.Join(surveyDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(surveyDir, "config.yaml"))
}

// Load reads .survey/config.yaml (defaults when missing), applies environment
// overrides and validates the result. Validation failures are returned as
// *ConfigurationError.
func Load(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		SurveyProjectDir: filepath.Join(projectDir, SurveyDir),
		Project:          defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize(projectDir)
	if err := cfg.Project.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.SurveyProjectDir, "logs")
}

// JourneyLogPath returns the session journal location.
func (c *Config) JourneyLogPath() string {
	return filepath.Join(c.LogsDir(), "journey.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.SurveyProjectDir, "config.yaml")
}

// Variant returns the configured survey variant name.
func (c *Config) Variant() string {
	return c.Project.Survey.Variant
}

// Sink returns the persistence settings.
func (c *Config) Sink() SinkConfig {
	return c.Project.Sink
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Survey.Seed == "" {
		pc.Survey.Seed = defaultSeed
	}
	if pc.Sink.Driver == "" {
		pc.Sink.Driver = DriverLocal
	}
	if pc.Sink.Local.Dir == "" {
		pc.Sink.Local.Dir = "."
	}
	if pc.Sink.GitHub.APIURL == "" {
		pc.Sink.GitHub.APIURL = defaultGitHubAPI
	}
	if pc.Sink.GitHub.Path == "" {
		pc.Sink.GitHub.Path = defaultGitHubPath
	}
	if pc.Sink.GitHub.Timeout <= 0 {
		pc.Sink.GitHub.Timeout = defaultGitHubTimeout
	}
	if pc.Sink.S3.Region == "" {
		pc.Sink.S3.Region = defaultS3Region
	}
	if pc.Sink.SQLite.Path == "" {
		pc.Sink.SQLite.Path = filepath.Join(SurveyDir, "responses.db")
	}
	if pc.Server.Host == "" {
		pc.Server.Host = defaultServerHost
	}
	if pc.Server.Port == 0 {
		pc.Server.Port = defaultServerPort
	}
	if pc.Server.SessionTTL <= 0 {
		pc.Server.SessionTTL = defaultSessionTTL
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	setString := func(env string, target *string) {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			*target = value
		}
	}
	setString("SURVEY_VARIANT", &pc.Survey.Variant)
	setString("SURVEY_SEED", &pc.Survey.Seed)
	setString("SURVEY_SINK_DRIVER", &pc.Sink.Driver)
	setString("SURVEY_LOCAL_DIR", &pc.Sink.Local.Dir)
	setString("SURVEY_GITHUB_API_URL", &pc.Sink.GitHub.APIURL)
	setString("SURVEY_GITHUB_REPOSITORY", &pc.Sink.GitHub.Repository)
	setString("SURVEY_GITHUB_PATH", &pc.Sink.GitHub.Path)
	setString("SURVEY_GITHUB_BRANCH", &pc.Sink.GitHub.Branch)
	setString(TokenEnv, &pc.Sink.GitHub.Token)
	setString("SURVEY_S3_BUCKET", &pc.Sink.S3.Bucket)
	setString("SURVEY_S3_REGION", &pc.Sink.S3.Region)
	setString("SURVEY_S3_ENDPOINT", &pc.Sink.S3.Endpoint)
	setString("SURVEY_S3_PREFIX", &pc.Sink.S3.Prefix)
	setString("SURVEY_SQLITE_PATH", &pc.Sink.SQLite.Path)
	setString("SURVEY_SERVER_HOST", &pc.Server.Host)
	if value := strings.TrimSpace(os.Getenv("SURVEY_S3_PATH_STYLE")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			pc.Sink.S3.PathStyle = enabled
		}
	}
	if value := strings.TrimSpace(os.Getenv("SURVEY_SERVER_PORT")); value != "" {
		if port, err := strconv.Atoi(value); err == nil {
			pc.Server.Port = port
		}
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Survey.Variant = strings.ToLower(strings.TrimSpace(pc.Survey.Variant))
	if pc.Survey.Variant == "" {
		pc.Survey.Variant = "action"
	}
	pc.Survey.Title = strings.TrimSpace(pc.Survey.Title)
	pc.Survey.Seed = strings.TrimSpace(pc.Survey.Seed)
	pc.Sink.Driver = strings.ToLower(strings.TrimSpace(pc.Sink.Driver))
	pc.Sink.Local.Dir = resolvePath(base, pc.Sink.Local.Dir)
	pc.Sink.SQLite.Path = resolvePath(base, pc.Sink.SQLite.Path)

	gh := &pc.Sink.GitHub
	gh.APIURL = strings.TrimRight(strings.TrimSpace(gh.APIURL), "/")
	gh.Repository = strings.Trim(strings.TrimSpace(gh.Repository), "/")
	gh.Path = normalizePrefix(gh.Path)
	gh.Branch = strings.TrimSpace(gh.Branch)
	gh.Token = strings.TrimSpace(gh.Token)

	pc.Sink.S3.Bucket = strings.TrimSpace(pc.Sink.S3.Bucket)
	pc.Sink.S3.Prefix = normalizePrefix(pc.Sink.S3.Prefix)
	pc.Server.Host = strings.TrimSpace(pc.Server.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return &ConfigurationError{Field: "version", Message: "must be >= 1"}
	}
	switch pc.Survey.Variant {
	case "action", "opportunity":
	default:
		return &ConfigurationError{Field: "survey.variant", Message: "must be 'action' or 'opportunity'"}
	}
	switch pc.Sink.Driver {
	case DriverLocal:
	case DriverGitHub:
		gh := pc.Sink.GitHub
		if gh.Token == "" {
			return &ConfigurationError{Field: TokenEnv, Message: "is required for the github sink"}
		}
		if gh.Owner() == "" || gh.Repo() == "" || strings.Contains(gh.Repo(), "/") {
			return &ConfigurationError{Field: "sink.github.repository", Message: "must be in owner/repo form"}
		}
		if gh.Path == "" {
			return &ConfigurationError{Field: "sink.github.path", Message: "is required for the github sink"}
		}
	case DriverS3:
		if pc.Sink.S3.Bucket == "" {
			return &ConfigurationError{Field: "sink.s3.bucket", Message: "is required for the s3 sink"}
		}
	case DriverSQLite:
		if pc.Sink.SQLite.Path == "" {
			return &ConfigurationError{Field: "sink.sqlite.path", Message: "is required for the sqlite sink"}
		}
	default:
		return &ConfigurationError{Field: "sink.driver", Message: "must be one of local, github, s3, sqlite"}
	}
	if pc.Server.Port <= 0 || pc.Server.Port > 65535 {
		return &ConfigurationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	return nil
}

// normalizePrefix trims a storage prefix and guarantees a trailing slash
// when non-empty.
func normalizePrefix(value string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
