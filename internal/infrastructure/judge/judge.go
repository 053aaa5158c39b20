// Package judge runs solutions against a Judge0-compatible remote judge.
// Submissions are sent as one batch and polled until every case settles.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Judge0 status ids. Anything above StatusAccepted is a failed verdict.
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

var errPending = errors.New("submissions still pending")

type Config struct {
	BaseURL      string
	APIKey       string
	APIHost      string
	PollInterval time.Duration
	MaxWait      time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger logging.Logger
}

func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

type submission struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type batchRequest struct {
	Submissions []submission `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type submissionResult struct {
	Token  string `json:"token"`
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
}

type batchResult struct {
	Submissions []submissionResult `json:"submissions"`
}

// Run submits code once per test case and returns one verdict per case, in
// test case order.
func (c *Client) Run(ctx context.Context, languageID int, code string, cases []domain.TestCase) ([]domain.Verdict, error) {
	if len(cases) == 0 {
		return nil, errors.New("no test cases")
	}

	tokens, err := c.submit(ctx, languageID, code, cases)
	if err != nil {
		return nil, err
	}

	results, err := backoff.Retry(ctx, func() ([]submissionResult, error) {
		results, err := c.fetch(ctx, tokens)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if r.Status.ID <= StatusProcessing {
				return nil, errPending
			}
		}
		return results, nil
	},
		backoff.WithBackOff(c.pollBackOff()),
		backoff.WithMaxElapsedTime(c.cfg.MaxWait),
	)
	if err != nil {
		return nil, fmt.Errorf("poll judge: %w", err)
	}

	c.logger.Debug(logging.Judge, logging.Submission, "judge batch settled", map[logging.ExtraKey]any{
		"Cases": len(results),
	})
	return toVerdicts(results), nil
}

func (c *Client) pollBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.PollInterval
	b.MaxInterval = 4 * c.cfg.PollInterval
	return b
}

func (c *Client) submit(ctx context.Context, languageID int, code string, cases []domain.TestCase) ([]string, error) {
	req := batchRequest{Submissions: make([]submission, len(cases))}
	for i, tc := range cases {
		req.Submissions[i] = submission{
			SourceCode:     code,
			LanguageID:     languageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out []tokenResponse
	if err := c.do(ctx, http.MethodPost, "/submissions/batch?base64_encoded=false", body, &out); err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}
	if len(out) != len(cases) {
		return nil, fmt.Errorf("submit batch: got %d tokens for %d cases", len(out), len(cases))
	}

	tokens := make([]string, len(out))
	for i, t := range out {
		if t.Token == "" {
			return nil, fmt.Errorf("submit batch: case %d rejected", i)
		}
		tokens[i] = t.Token
	}
	return tokens, nil
}

func (c *Client) fetch(ctx context.Context, tokens []string) ([]submissionResult, error) {
	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("base64_encoded", "false")
	q.Set("fields", "token,status,stdout,stderr,compile_output,time,memory")

	var out batchResult
	if err := c.do(ctx, http.MethodGet, "/submissions/batch?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Submissions) != len(tokens) {
		return nil, backoff.Permanent(fmt.Errorf("got %d results for %d tokens", len(out.Submissions), len(tokens)))
	}
	return out.Submissions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	}
	if c.cfg.APIHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.cfg.APIHost)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("judge returned %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return backoff.Permanent(fmt.Errorf("judge returned %s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode judge response: %w", err))
	}
	return nil
}

func toVerdicts(results []submissionResult) []domain.Verdict {
	verdicts := make([]domain.Verdict, len(results))
	for i, r := range results {
		v := domain.Verdict{
			TestCase: i,
			StatusID: r.Status.ID,
			Status:   r.Status.Description,
			Accepted: r.Status.ID == StatusAccepted,
			Stdout:   deref(r.Stdout),
			Stderr:   deref(r.Stderr),
			Time:     deref(r.Time),
		}
		if v.Stderr == "" {
			v.Stderr = deref(r.CompileOutput)
		}
		if r.Memory != nil {
			v.Memory = *r.Memory
		}
		verdicts[i] = v
	}
	return verdicts
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
