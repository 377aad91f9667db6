package sink

import (
	"context"
	"fmt"

	"github.com/kingrea/roadmap-survey/internal/config"
	"github.com/kingrea/roadmap-survey/internal/survey"
)

// Open builds the sink selected by cfg.Driver. Sinks holding resources also
// implement io.Closer.
func Open(ctx context.Context, cfg config.SinkConfig) (survey.Sink, error) {
	switch cfg.Driver {
	case config.DriverLocal, "":
		return NewLocal(cfg.Local.Dir), nil
	case config.DriverGitHub:
		gh, err := NewGitHub(GitHubConfig{
			APIURL:     cfg.GitHub.APIURL,
			Owner:      cfg.GitHub.Owner(),
			Repo:       cfg.GitHub.Repo(),
			PathPrefix: cfg.GitHub.Path,
			Branch:     cfg.GitHub.Branch,
			Token:      cfg.GitHub.Token,
			Timeout:    cfg.GitHub.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return gh, nil
	case config.DriverS3:
		store, err := NewS3(ctx, S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sink: unknown driver %q", cfg.Driver)
	}
}
