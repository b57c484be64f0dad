package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/ratelimit"
)

// Named APIs for the shared rate limiter. Callers across the process queue
// on the same permit pool per name.
const (
	apiProblemSet = "problemset.problems"
	apiUserStatus = "user.status"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"

// Client talks to the Codeforces-style judge HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *ratelimit.Limiter
	log     *slog.Logger
}

func NewClient(baseURL string, limiter *ratelimit.Limiter, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		log:     log,
	}
}

// envelope is the judge's standard response wrapper. Any status other than
// "OK" is a fetch error regardless of the HTTP code.
type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) get(ctx context.Context, api, path string, query url.Values, result any) error {
	release, err := c.limiter.Acquire(ctx, api)
	if err != nil {
		return err
	}
	defer release()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperr.Fetch(err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return apperr.Fetch(err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return apperr.Fetch(fmt.Errorf("malformed response: %w", err))
	}
	if env.Status != "OK" {
		c.log.Warn("judge rejected request", "api", api, "comment", env.Comment)
		return apperr.Fetch(fmt.Errorf("judge status %q: %s", env.Status, env.Comment))
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return apperr.Fetch(fmt.Errorf("malformed result: %w", err))
	}
	return nil
}

// ProblemSet fetches the full problem catalog.
func (c *Client) ProblemSet(ctx context.Context) ([]Problem, error) {
	var result struct {
		Problems []Problem `json:"problems"`
	}
	if err := c.get(ctx, apiProblemSet, "/problemset.problems", nil, &result); err != nil {
		return nil, err
	}
	c.log.Debug("fetched problem set", "count", len(result.Problems))
	return result.Problems, nil
}

// UserStatus fetches a handle's submissions, most recent first.
// count <= 0 fetches the judge's default page.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]Submission, error) {
	query := url.Values{"handle": {handle}}
	if count > 0 {
		query.Set("count", strconv.Itoa(count))
	}

	var subs []Submission
	if err := c.get(ctx, apiUserStatus, "/user.status", query, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// LastSubmission returns the handle's most recent submission, or an
// external-fetch error when the handle has none.
func (c *Client) LastSubmission(ctx context.Context, handle string) (Submission, error) {
	subs, err := c.UserStatus(ctx, handle, 1)
	if err != nil {
		return Submission{}, err
	}
	if len(subs) == 0 {
		return Submission{}, apperr.Fetch(fmt.Errorf("no submission found for %s", handle))
	}
	return subs[0], nil
}
