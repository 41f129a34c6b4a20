package ankiconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"codeberg.org/snonux/ankify/internal/logging"
)

const (
	// DefaultURL is where AnkiConnect listens unless configured otherwise
	DefaultURL = "http://localhost:8765"

	// APIVersion is the AnkiConnect protocol version sent with every request
	APIVersion = 6

	// tripAfter consecutive unreachable failures open the breaker
	tripAfter = 3
)

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// Client talks to one AnkiConnect endpoint
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	validate   *validator.Validate
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient     *http.Client
	logger         *slog.Logger
	breakerTimeout time.Duration
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithLogger sets the logger for breaker state changes and request tracing
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithBreakerTimeout sets how long the breaker stays open before it lets a
// probe request through
func WithBreakerTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.breakerTimeout = d }
}

// NewClient creates a client for the endpoint at url (DefaultURL if empty)
func NewClient(url string, opts ...Option) *Client {
	o := clientOptions{
		httpClient:     &http.Client{},
		breakerTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if url == "" {
		url = DefaultURL
	}
	logger := logging.OrDefault(o.logger)

	c := &Client{
		url:        strings.TrimRight(url, "/"),
		httpClient: o.httpClient,
		validate:   newValidator(),
		logger:     logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ankiconnect",
		MaxRequests: 1,
		Timeout:     o.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnreachable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

// URL returns the endpoint this client posts to
func (c *Client) URL() string {
	return c.url
}

// Version pings the endpoint and returns its protocol version
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	if err := c.invoke(ctx, "version", nil, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// AddNote validates and creates a note, returning its id
func (c *Client) AddNote(ctx context.Context, note Note) (int64, error) {
	if err := c.validate.Struct(note); err != nil {
		return 0, invalidNote(err)
	}

	var id *int64
	if err := c.invoke(ctx, "addNote", map[string]any{"note": note}, &id); err != nil {
		return 0, err
	}
	if id == nil {
		return 0, &RemoteError{Action: "addNote", Message: "note was not created"}
	}
	return *id, nil
}

// DeckNames lists all decks
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ModelNames lists all note types
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "modelNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// FindDuplicates returns the ids of notes in deck whose Front field equals front
func (c *Client) FindDuplicates(ctx context.Context, deck, front string) ([]int64, error) {
	var ids []int64
	params := map[string]any{"query": DuplicateQuery(deck, front)}
	if err := c.invoke(ctx, "findNotes", params, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// DuplicateQuery builds the Anki search used by FindDuplicates
func DuplicateQuery(deck, front string) string {
	return fmt.Sprintf(`deck:"%s" front:"%s"`, escapeQuery(deck), escapeQuery(front))
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func (c *Client) invoke(ctx context.Context, action string, params any, result any) error {
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(request{Action: action, Version: APIVersion, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	c.logger.Debug("anki-connect request", "action", action, "url", c.url)

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, action, body)
	})
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Half-open with the trial request still running: ask Anki directly
		// instead of reporting a reachable endpoint as down.
		out, err = c.post(ctx, action, body)
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return &ConnectionError{Action: action, Cause: err}
		}
		return err
	}

	reply := out.(*response)
	if reply.Error != nil {
		return &RemoteError{Action: action, Message: *reply.Error}
	}

	if result == nil || len(reply.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Result, result); err != nil {
		return fmt.Errorf("unexpected %s result: %w", action, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, action string, body []byte) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return nil, &ConnectionError{Action: action, Cause: err}
		}
		return nil, fmt.Errorf("anki-connect %s failed: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s reply: %w", action, err)
	}

	var reply response
	if err := json.Unmarshal(data, &reply); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("anki-connect %s returned HTTP %d", action, resp.StatusCode)
		}
		return nil, fmt.Errorf("invalid %s reply: %w", action, err)
	}

	return &reply, nil
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
