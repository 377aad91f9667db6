package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearSurveyEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "SURVEY_") {
			t.Setenv(key, "")
		}
	}
}

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	surveyDir := filepath.Join(projectDir, SurveyDir)
	if err := os.MkdirAll(surveyDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(surveyDir, "config.yaml"), []byte(strings.TrimSpace(body)), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	clearSurveyEnv(t)
	projectDir := t.TempDir()
	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Variant() != "action" {
		t.Fatalf("expected action variant, got %q", cfg.Variant())
	}
	if cfg.Sink().Driver != DriverLocal {
		t.Fatalf("expected local driver, got %q", cfg.Sink().Driver)
	}
	if cfg.Sink().Local.Dir != filepath.Clean(projectDir) {
		t.Fatalf("expected local dir to resolve to project dir, got %s", cfg.Sink().Local.Dir)
	}
	if cfg.Project.Survey.Seed != defaultSeed {
		t.Fatalf("expected default seed, got %q", cfg.Project.Survey.Seed)
	}
	if cfg.Project.Server.SessionTTL != defaultSessionTTL {
		t.Fatalf("expected default session ttl, got %s", cfg.Project.Server.SessionTTL)
	}
}

func TestInitSurveyDirWritesLoadableDefault(t *testing.T) {
	clearSurveyEnv(t)
	projectDir := t.TempDir()
	if err := InitSurveyDir(projectDir); err != nil {
		t.Fatalf("init survey dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, SurveyDir, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("default config should load: %v", err)
	}
	if cfg.Sink().GitHub.Path != "responses/" {
		t.Fatalf("unexpected github path %q", cfg.Sink().GitHub.Path)
	}
	if cfg.JourneyLogPath() != filepath.Join(projectDir, SurveyDir, "logs", "journey.log") {
		t.Fatalf("unexpected journey log path %s", cfg.JourneyLogPath())
	}
	// A second init must not clobber user edits.
	writeConfig(t, projectDir, "version: 1\nsurvey:\n  variant: opportunity\n")
	if err := InitSurveyDir(projectDir); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	cfg, err = Load(projectDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Variant() != "opportunity" {
		t.Fatalf("init overwrote config, variant=%q", cfg.Variant())
	}
}

func TestLoadParsesGitHubSink(t *testing.T) {
	clearSurveyEnv(t)
	t.Setenv(TokenEnv, "s3cret")
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
survey:
  variant: Opportunity
  seed: seeds/custom.yaml
sink:
  driver: github
  github:
    api_url: https://github.example.com/api/v3/
    repository: elmiraberjisian/carsharing
    path: /survey/responses
    timeout: 5s
`)
	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	gh := cfg.Sink().GitHub
	if gh.Owner() != "elmiraberjisian" || gh.Repo() != "carsharing" {
		t.Fatalf("unexpected owner/repo %q/%q", gh.Owner(), gh.Repo())
	}
	if gh.Path != "survey/responses/" {
		t.Fatalf("expected normalized path, got %q", gh.Path)
	}
	if gh.APIURL != "https://github.example.com/api/v3" {
		t.Fatalf("expected trimmed api url, got %q", gh.APIURL)
	}
	if gh.Token != "s3cret" {
		t.Fatalf("token should come from %s", TokenEnv)
	}
	if gh.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", gh.Timeout)
	}
	if cfg.Variant() != "opportunity" {
		t.Fatalf("expected lower-cased variant, got %q", cfg.Variant())
	}
}

func TestLoadGitHubWithoutTokenIsConfigurationError(t *testing.T) {
	clearSurveyEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
sink:
  driver: github
  github:
    repository: owner/repo
`)
	_, err := Load(projectDir)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != TokenEnv {
		t.Fatalf("expected token field, got %q", cfgErr.Field)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bad driver":     "sink:\n  driver: ftp\n",
		"bad variant":    "survey:\n  variant: poll\n",
		"s3 no bucket":   "sink:\n  driver: s3\n",
		"bad repository": "sink:\n  driver: github\n  github:\n    repository: justowner\n",
		"bad port":       "server:\n  port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearSurveyEnv(t)
			t.Setenv(TokenEnv, "token")
			projectDir := t.TempDir()
			writeConfig(t, projectDir, body)
			_, err := Load(projectDir)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	clearSurveyEnv(t)
	t.Setenv("SURVEY_SINK_DRIVER", "S3")
	t.Setenv("SURVEY_S3_BUCKET", "responses-bucket")
	t.Setenv("SURVEY_S3_PATH_STYLE", "true")
	t.Setenv("SURVEY_SERVER_PORT", "9001")
	t.Setenv("SURVEY_VARIANT", "opportunity")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sink().Driver != DriverS3 || cfg.Sink().S3.Bucket != "responses-bucket" || !cfg.Sink().S3.PathStyle {
		t.Fatalf("s3 overrides not applied: %+v", cfg.Sink().S3)
	}
	if cfg.Project.Server.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", cfg.Project.Server.Port)
	}
	if cfg.Variant() != "opportunity" {
		t.Fatalf("expected variant override, got %q", cfg.Variant())
	}
}

func TestLoadParseError(t *testing.T) {
	clearSurveyEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, "survey: [unterminated")
	if _, err := Load(projectDir); err == nil {
		t.Fatalf("expected parse error")
	}
}
