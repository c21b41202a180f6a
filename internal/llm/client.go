// Package llm talks to the OpenAI chat-completions service on behalf of the
// dispatcher. It normalizes transport failures into the [UpstreamError]
// taxonomy and paces requests with a token-bucket limiter.
//
// The client never retries: a failed completion is reported to the user,
// whose next command is the retry (with the preserved history as context).
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/0xjasper/relaybot/internal/log"
	"github.com/0xjasper/relaybot/internal/session"
)

// ErrNoAPIKey indicates the client was constructed without credentials.
var ErrNoAPIKey = errors.New("llm: API key is required")

// Config contains the required parameters for the completion client.
type Config struct {
	APIKey              string
	Model               string
	MaxCompletionTokens int64
	Temperature         float64

	// RequestTimeout bounds a single completion request. Zero uses
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Limiter paces outgoing requests. Nil uses a conservative default.
	Limiter *rate.Limiter

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	Logger log.Logger
}

// DefaultRequestTimeout bounds a single completion request.
const DefaultRequestTimeout = 60 * time.Second

// Client sends bounded conversation windows to the completion service.
type Client struct {
	api         openai.Client
	model       string
	maxTokens   int64
	temperature float64
	limiter     *rate.Limiter
	logger      log.Logger
}

// New creates a completion client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(2), 5)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		// No SDK-level retries: failure handling is the caller's policy.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:         openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxCompletionTokens,
		temperature: cfg.Temperature,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Complete sends the ordered turns, prefixed by the persona system prompt,
// and returns the assistant reply. Errors are always *UpstreamError.
func (c *Client) Complete(ctx context.Context, turns []session.Turn, systemPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &UpstreamError{Kind: KindRateLimited, Err: err}
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		switch t.Role {
		case session.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Text))
		default:
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Kind: KindInvalidResponse, Err: errors.New("response contains no choices")}
	}
	reply := resp.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", &UpstreamError{Kind: KindInvalidResponse, Err: errors.New("response contains empty content")}
	}

	c.logger.Debug("completion succeeded",
		"model", c.model,
		"turns", len(turns),
		"elapsed", time.Since(start),
	)
	return reply, nil
}

// classify maps an SDK or transport error onto the upstream taxonomy.
func classify(err error) *UpstreamError {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			return &UpstreamError{Kind: KindRateLimited, Err: err}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &UpstreamError{Kind: KindTimeout, Err: err}
		default:
			return &UpstreamError{Kind: KindTransport, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &UpstreamError{Kind: KindInvalidResponse, Err: err}
	}

	return &UpstreamError{Kind: KindTransport, Err: fmt.Errorf("completion request: %w", err)}
}
