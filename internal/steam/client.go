package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"gametime/internal/config"
	"gametime/internal/gametime"
	"gametime/internal/logging"
)

const (
	recentlyPlayedPath = "/IPlayerService/GetRecentlyPlayedGames/v0001/"
	maxBodyBytes       = 4 << 20
)

// Outcome classifies the result of a single fetch.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeRequestFailed Outcome = "request_failed"
	OutcomeBadStatus     Outcome = "bad_status"
	OutcomeMalformed     Outcome = "malformed"
	OutcomeEmpty         Outcome = "empty"
	OutcomeNotRecent     Outcome = "not_recent"
	OutcomeCircuitOpen   Outcome = "circuit_open"
)

// Result is the playtime reported for one subject and game. Minutes is
// missing unless Outcome is OutcomeOK.
type Result struct {
	Minutes float64
	Outcome Outcome
}

// OK reports whether the fetch produced a value.
func (r Result) OK() bool { return r.Outcome == OutcomeOK }

// Fetcher is the acquisition dependency of the dataset store.
type Fetcher interface {
	Fetch(ctx context.Context, steamID string, appID int64) Result
}

// Client queries GetRecentlyPlayedGames.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *gobreaker.CircuitBreaker[reply]

	breakerFailures int
	breakerCooldown time.Duration
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBreaker sets how many consecutive transport failures open the circuit
// and how long it stays open. A threshold of zero disables the breaker.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(c *Client) {
		c.breakerFailures = failures
		c.breakerCooldown = cooldown
	}
}

// WithLogger sets the logger that receives fetch warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Steam client. The API key is required.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("steam api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("steam base url required")
	}
	client := &Client{
		apiKey:          apiKey,
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		logger:          logging.NewNop(),
		breakerFailures: 5,
		breakerCooldown: time.Minute,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.breaker = newBreaker(client.breakerFailures, client.breakerCooldown, logging.NewComponentLogger(client.logger, "steam"))
	return client, nil
}

// NewFromConfig builds a client from the [steam] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("steam: config is required")
	}
	base := []Option{
		WithTimeout(cfg.SteamTimeout()),
		WithBreaker(cfg.Steam.BreakerFailures, time.Duration(cfg.Steam.BreakerCooldownSeconds)*time.Second),
		WithLogger(logger),
	}
	return New(cfg.Steam.APIKey, cfg.Steam.BaseURL, append(base, opts...)...)
}

type reply struct {
	status int
	reason string
	body   []byte
}

type recentlyPlayed struct {
	Response *struct {
		TotalCount *int         `json:"total_count"`
		Games      []playedGame `json:"games"`
	} `json:"response"`
}

type playedGame struct {
	AppID           int64    `json:"appid"`
	PlaytimeForever *float64 `json:"playtime_forever"`
}

var errServerStatus = errors.New("steam server error")

// Fetch returns the total playtime in minutes of appID for steamID, taken
// from the user's recently played games. Warnings go to the logger attached
// to ctx when there is one.
func (c *Client) Fetch(ctx context.Context, steamID string, appID int64) Result {
	logger := logging.NewComponentLogger(logging.LoggerFromContext(ctx, c.logger), "steam").With(
		logging.SteamID(steamID),
		logging.GameID(appID),
	)
	logger.Info("fetching gametime")

	rep, err := c.breaker.Execute(func() (reply, error) {
		return c.get(ctx, steamID)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			logging.WarnWithContext(logger,
				fmt.Sprintf("Failed to fetch user '%s' information. The Steam API circuit is open.", steamID),
				"steam_circuit_open",
				logging.Error(err),
				logging.Hint("check network connectivity to the Steam API and rerun later"),
				logging.Impact("gametime recorded as missing without contacting Steam"),
			)
			return missing(OutcomeCircuitOpen)
		case errors.Is(err, errServerStatus):
			return c.badStatus(logger, steamID, rep)
		default:
			logging.WarnWithContext(logger,
				fmt.Sprintf("Failed to fetch user '%s' information. Check the logs for the error traceback.", steamID),
				"steam_request_failed",
				logging.Error(err),
				logging.Hint("check network connectivity and steam.timeout_seconds"),
				logging.Impact("gametime recorded as missing for this run"),
			)
			return missing(OutcomeRequestFailed)
		}
	}
	if rep.status < 200 || rep.status >= 300 {
		return c.badStatus(logger, steamID, rep)
	}
	return c.decode(logger, steamID, appID, rep)
}

func (c *Client) get(ctx context.Context, steamID string) (reply, error) {
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("steamid", steamID)
	query.Set("format", "json")
	endpoint := c.baseURL + recentlyPlayedPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return reply{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The key is part of the URL; drop it from transport errors.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return reply{}, fmt.Errorf("GET %s: %w", c.baseURL+recentlyPlayedPath, uerr.Err)
		}
		return reply{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return reply{}, fmt.Errorf("read response body: %w", err)
	}
	rep := reply{status: resp.StatusCode, reason: http.StatusText(resp.StatusCode), body: body}
	if resp.StatusCode >= 500 {
		return rep, errServerStatus
	}
	return rep, nil
}

func (c *Client) badStatus(logger *slog.Logger, steamID string, rep reply) Result {
	logging.WarnWithContext(logger,
		fmt.Sprintf("Failed to fetch user '%s' information. The steam API did not return a successful response. Status code: %d, Reason: %s.", steamID, rep.status, rep.reason),
		"steam_bad_status",
		logging.Int("status", rep.status),
		logging.Hint("a 401 or 403 usually means the API key was revoked or is invalid; check steam.api_key"),
		logging.Impact("gametime recorded as missing for this run"),
	)
	return missing(OutcomeBadStatus)
}

func (c *Client) decode(logger *slog.Logger, steamID string, appID int64, rep reply) Result {
	malformed := func(detail string) Result {
		logging.WarnWithContext(logger,
			fmt.Sprintf("Failed to fetch user '%s' information. The steam API returned an unexpected response: %s. Status code: %d, Reason: %s.", steamID, detail, rep.status, rep.reason),
			"steam_malformed_response",
			logging.Hint("check steam.base_url points at the Steam Web API"),
			logging.Impact("gametime recorded as missing for this run"),
		)
		return missing(OutcomeMalformed)
	}

	var raw any
	if err := json.Unmarshal(rep.body, &raw); err != nil {
		return malformed("body is not valid JSON")
	}
	schema, err := responseSchema()
	if err != nil {
		return malformed(err.Error())
	}
	if err := schema.Validate(raw); err != nil {
		if obj, ok := raw.(map[string]any); ok {
			if _, hasRoot := obj["response"]; !hasRoot {
				return malformed("lacking the root key 'response'")
			}
		}
		return malformed(err.Error())
	}
	var payload recentlyPlayed
	if err := json.Unmarshal(rep.body, &payload); err != nil || payload.Response == nil {
		return malformed("lacking the root key 'response'")
	}
	if payload.Response.TotalCount == nil && payload.Response.Games == nil {
		logging.WarnWithContext(logger,
			fmt.Sprintf("Failed to fetch user '%s' information. The steam API returned a valid but empty response. Status code: %d, Reason: %s.", steamID, rep.status, rep.reason),
			"steam_empty_response",
			logging.Hint("check the steam id and that the profile and game details are public"),
			logging.Impact("gametime recorded as missing for this run"),
		)
		return missing(OutcomeEmpty)
	}
	for _, game := range payload.Response.Games {
		if game.AppID != appID {
			continue
		}
		if game.PlaytimeForever == nil {
			return Result{Minutes: 0, Outcome: OutcomeOK}
		}
		return Result{Minutes: *game.PlaytimeForever, Outcome: OutcomeOK}
	}
	logging.WarnWithContext(logger,
		fmt.Sprintf("Game '%s' not found in user's '%s' recently played games.", strconv.FormatInt(appID, 10), steamID),
		"steam_game_not_recent",
		logging.Hint("the game was not played in the last two weeks or game details are private"),
		logging.Impact("gametime recorded as missing for this run"),
	)
	return missing(OutcomeNotRecent)
}

func missing(outcome Outcome) Result {
	return Result{Minutes: gametime.Missing(), Outcome: outcome}
}
