package sink

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kingrea/roadmap-survey/internal/survey"
)

const maxErrorBody = 64 << 10

// RemoteWriteError is returned when the contents API answers with anything
// other than 201 Created. Body is the response body as received; when reading
// it failed part way, ReadErr is set and Body holds only what arrived.
type RemoteWriteError struct {
	StatusCode int
	Body       string
	ReadErr    error
}

func (e *RemoteWriteError) Error() string {
	if e.ReadErr != nil {
		return fmt.Sprintf("Error uploading to GitHub: %d %s (body truncated: %v)", e.StatusCode, strings.TrimSpace(e.Body), e.ReadErr)
	}
	return fmt.Sprintf("Error uploading to GitHub: %d %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *RemoteWriteError) Unwrap() error {
	return e.ReadErr
}

// GitHubConfig describes the target repository of the GitHub sink.
type GitHubConfig struct {
	APIURL     string
	Owner      string
	Repo       string
	PathPrefix string
	Branch     string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GitHub uploads responses through the repository contents API, one file
// per respondent under PathPrefix. Each submission is a single PUT without
// retry.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
}

type putContentsResponse struct {
	Content struct {
		Path    string `json:"path"`
		HTMLURL string `json:"html_url"`
	} `json:"content"`
}

// NewGitHub validates cfg and returns the sink.
func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("sink: github token is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("sink: github owner and repo are required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GitHub{cfg: cfg, client: client}, nil
}

// Name implements survey.Sink.
func (g *GitHub) Name() string { return "github" }

// ContentsURL returns the API endpoint a file name is uploaded to.
func (g *GitHub) ContentsURL(fileName string) string {
	segments := []string{"repos", g.cfg.Owner, g.cfg.Repo, "contents"}
	for _, part := range strings.Split(g.cfg.PathPrefix+fileName, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return g.cfg.APIURL + "/" + strings.Join(segments, "/")
}

// Persist implements survey.Sink.
func (g *GitHub) Persist(ctx context.Context, sub survey.Submission) (survey.Receipt, error) {
	body, err := json.Marshal(putContentsRequest{
		Message: fmt.Sprintf("Add survey response from %s", sub.Name),
		Content: base64.StdEncoding.EncodeToString(sub.CSV),
		Branch:  g.cfg.Branch,
	})
	if err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: encode github request: %w", err)
	}
	endpoint := g.ContentsURL(sub.FileName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: build github request: %w", err)
	}
	req.Header.Set("Authorization", "token "+g.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: github put %s: %w", sub.FileName, err)
	}
	defer resp.Body.Close()
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusCreated {
		return survey.Receipt{}, &RemoteWriteError{StatusCode: resp.StatusCode, Body: string(raw), ReadErr: readErr}
	}
	location := strings.TrimPrefix(endpoint, g.cfg.APIURL)
	var created putContentsResponse
	if err := json.Unmarshal(raw, &created); err == nil {
		if created.Content.HTMLURL != "" {
			location = created.Content.HTMLURL
		} else if created.Content.Path != "" {
			location = created.Content.Path
		}
	}
	return survey.Receipt{Sink: g.Name(), Location: location}, nil
}
