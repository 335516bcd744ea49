package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// chatClient is the subset of *openai.Client used here.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig controls how the OpenAI-compatible client behaves.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds a single attempt, not the whole retry sequence.
	Timeout    time.Duration
	MaxRetries int
	// Backoff is multiplied by the attempt number: Backoff, 2*Backoff, ...
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.ChatMetrics
}

// OpenAIClient calls chat completions on an OpenAI-compatible API through go-openai.
type OpenAIClient struct {
	client     chatClient
	baseURL    string
	model      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	metrics    *metrics.ChatMetrics
}

// NewOpenAIClient returns ErrNotConfigured when no API key is set.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	sdkCfg := openai.DefaultConfig(cfg.APIKey)
	sdkCfg.BaseURL = baseURL
	if cfg.HTTPClient != nil {
		sdkCfg.HTTPClient = cfg.HTTPClient
	}

	c := newOpenAIClient(openai.NewClientWithConfig(sdkCfg), cfg)
	c.baseURL = baseURL
	return c, nil
}

func newOpenAIClient(client chatClient, cfg OpenAIConfig) *OpenAIClient {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		client:     client,
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Complete sends the conversation with system prompts prepended. A reply with
// no choices yields an empty Text and no error.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, &Error{Code: CodeBadRequest, Message: "at least one message is required"}
	}
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, block := range req.System {
		if strings.TrimSpace(block) != "" {
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: block})
		}
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: int(req.MaxTokens),
	}
	if req.Temperature >= 0 {
		chatReq.Temperature = req.Temperature
	}

	decoded, err := c.invoke(ctx, chatReq)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		Usage: Usage{
			InputTokens:  int32(decoded.Usage.PromptTokens),
			OutputTokens: int32(decoded.Usage.CompletionTokens),
			TotalTokens:  int32(decoded.Usage.TotalTokens),
		},
	}
	if len(decoded.Choices) > 0 {
		resp.Text = strings.TrimSpace(decoded.Choices[0].Message.Content)
		resp.StopReason = string(decoded.Choices[0].FinishReason)
	}
	return resp, nil
}

func (c *OpenAIClient) invoke(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr *Error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
		cerr := classify(err)
		if cerr.Code != CodeTransient || attempt == c.maxRetries {
			return openai.ChatCompletionResponse{}, cerr
		}
		lastErr = cerr
		c.logRetry(attempt, cerr)
		if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
			return openai.ChatCompletionResponse{}, sleepErr
		}
	}
	if lastErr != nil {
		return openai.ChatCompletionResponse{}, lastErr
	}
	return openai.ChatCompletionResponse{}, &Error{Code: CodeUnknown, Message: "request failed without response"}
}

// attempt performs one call under its own timeout.
func (c *OpenAIClient) attempt(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.CreateChatCompletion(attemptCtx, req)
}

func (c *OpenAIClient) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(attempt+1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *OpenAIClient) logRetry(attempt int, err *Error) {
	c.metrics.IncCompletionRetry()
	if c.logger == nil {
		return
	}
	c.logger.Warn("completion retry",
		"provider", "openai",
		"attempt", attempt+1,
		"status", err.StatusCode,
		"error", err,
	)
}

// classify maps go-openai errors onto completion codes. Only CodeTransient is retried.
func classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := &Error{
			StatusCode:   apiErr.HTTPStatusCode,
			UpstreamCode: upstreamCode(apiErr.Code),
			Message:      apiErr.Message,
			Err:          err,
		}
		switch {
		case e.UpstreamCode == "insufficient_quota" || apiErr.Type == "insufficient_quota":
			e.Code = CodeQuota
		case e.UpstreamCode == "invalid_api_key":
			e.Code = CodeAuth
		default:
			e.Code = codeForStatus(apiErr.HTTPStatusCode)
		}
		if e.Message == "" {
			e.Message = http.StatusText(e.StatusCode)
		}
		return e
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{
			Code:       codeForStatus(reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Message:    http.StatusText(reqErr.HTTPStatusCode),
			Err:        err,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Code: CodeBadResponse, Message: "decode response", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTransient, Message: "http error", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Code: CodeUnknown, Message: "request canceled", Err: err}
	}
	return &Error{Code: CodeTransient, Message: "http error", Err: err}
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeAuth
	case status == http.StatusTooManyRequests || status >= 500:
		return CodeTransient
	default:
		return CodeBadRequest
	}
}

func upstreamCode(code any) string {
	switch v := code.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// NotConfigured is a Client that always fails with ErrNotConfigured.
type NotConfigured struct{}

func (NotConfigured) Complete(context.Context, Request) (Response, error) {
	return Response{}, ErrNotConfigured
}
