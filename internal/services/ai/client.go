package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/codequeen-tgbot-go/internal/models"
	"github.com/codequeen-tgbot-go/internal/services/cache"
	"github.com/sirupsen/logrus"
)

// Service is the inference client interface consumed by the conversation
// orchestrator.
type Service interface {
	Generate(ctx context.Context, history []models.DialogMessage, message string) (string, error)
	TestConnectivity(ctx context.Context) bool
}

// Client talks to a HuggingFace-style text-generation endpoint with
// retry, backoff and response caching.
type Client struct {
	url            string
	token          string
	params         config.GenerationParams
	maxRetries     int
	timeout        time.Duration
	probeTimeout   time.Duration
	coldStartDelay time.Duration
	rateLimitDelay time.Duration
	retryDelay     time.Duration
	historyWindow  int

	httpClient *http.Client
	cache      cache.Service
	logger     *logrus.Logger
}

// NewClient creates an inference client.
func NewClient(cfg *config.InferenceConfig, cacheService cache.Service, logger *logrus.Logger) *Client {
	return &Client{
		url:            cfg.URL,
		token:          cfg.Token,
		params:         cfg.Parameters,
		maxRetries:     cfg.MaxRetries,
		timeout:        cfg.Timeout,
		probeTimeout:   cfg.ProbeTimeout,
		coldStartDelay: cfg.ColdStartDelay,
		rateLimitDelay: cfg.RateLimitDelay,
		retryDelay:     cfg.RetryDelay,
		historyWindow:  cfg.HistoryWindow,
		httpClient:     &http.Client{},
		cache:          cacheService,
		logger:         logger,
	}
}

type requestBody struct {
	Inputs     string                  `json:"inputs"`
	Parameters config.GenerationParams `json:"parameters"`
}

// Generate turns (history, new user message) into generated text. The
// rendered prompt is looked up in the cache first; otherwise up to
// maxRetries sequential attempts are made against the endpoint, with a
// backoff chosen by the failure class. The final failure is returned as a
// typed *Error.
func (c *Client) Generate(ctx context.Context, history []models.DialogMessage, message string) (string, error) {
	prompt := c.BuildPrompt(history, message)

	if answer, found := c.cache.Get(prompt); found {
		c.logger.Debug("Returning cached response")
		return answer, nil
	}

	var lastErr *Error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		text, aerr := c.attempt(ctx, prompt, attempt)
		if aerr == nil {
			c.cache.Set(prompt, text)
			return text, nil
		}

		lastErr = aerr
		c.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"kind":    aerr.Kind,
			"status":  aerr.Status,
			"error":   aerr.Error(),
		}).Warn("Inference attempt failed")

		if attempt == c.maxRetries {
			break
		}
		if err := c.wait(ctx, c.backoff(aerr, attempt)); err != nil {
			return "", &Error{Kind: ErrKindTimeout, Err: err}
		}
	}

	return "", lastErr
}

// attempt performs a single round trip and classifies the outcome.
func (c *Client) attempt(ctx context.Context, prompt string, attempt int) (string, *Error) {
	body, err := json.Marshal(requestBody{Inputs: prompt, Parameters: c.params})
	if err != nil {
		return "", &Error{Kind: ErrKindNetwork, Err: fmt.Errorf("marshal request: %w", err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: ErrKindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.WithFields(logrus.Fields{
		"url":     c.url,
		"attempt": attempt,
	}).Debug("Sending inference request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		text, modelErr, ok := Extract(payload)
		if modelErr != "" {
			return "", &Error{Kind: ErrKindModel, Status: resp.StatusCode, Message: modelErr}
		}
		if !ok {
			c.logger.WithField("payload", string(payload)).Debug("Unrecognized payload shape")
			return "", &Error{Kind: ErrKindEmptyOutput, Status: resp.StatusCode}
		}
		cleaned := Clean(text)
		if cleaned == "" {
			return "", &Error{Kind: ErrKindEmptyOutput, Status: resp.StatusCode}
		}
		return cleaned, nil
	case http.StatusServiceUnavailable:
		return "", &Error{Kind: ErrKindAPI, Status: resp.StatusCode, Message: "model is loading"}
	case http.StatusTooManyRequests:
		return "", &Error{Kind: ErrKindAPI, Status: resp.StatusCode, Message: "rate limited"}
	default:
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(payload),
		}).Error("Inference request failed")
		return "", &Error{Kind: ErrKindAPI, Status: resp.StatusCode, Message: string(payload)}
	}
}

// backoff picks the wait before the next attempt: cold starts grow with
// the attempt number, rate limiting uses a fixed delay, everything else a
// short generic one.
func (c *Client) backoff(aerr *Error, attempt int) time.Duration {
	switch aerr.Status {
	case http.StatusServiceUnavailable:
		return c.coldStartDelay * time.Duration(attempt)
	case http.StatusTooManyRequests:
		return c.rateLimitDelay
	default:
		return c.retryDelay
	}
}

// wait sleeps for d without stalling other requests; it returns early if
// ctx is done.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// classifyTransport sorts transport faults into timeout and network
// kinds.
func classifyTransport(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: ErrKindTimeout, Err: err}
	}
	return &Error{Kind: ErrKindNetwork, Err: err}
}

// TestConnectivity sends a single lightweight probe. 200, 503 and 422 all
// prove the endpoint is reachable; anything else, or a transport fault,
// reports false.
func (c *Client) TestConnectivity(ctx context.Context) bool {
	body, err := json.Marshal(map[string]string{"inputs": "Hello"})
	if err != nil {
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("Connectivity probe failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusServiceUnavailable, http.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}
