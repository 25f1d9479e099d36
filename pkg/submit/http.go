package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxResponseBytes = 4 << 20

var (
	// ErrUnexpectedStatus is returned for non-2xx replies.
	ErrUnexpectedStatus = errors.New("submit: unexpected status")
	// ErrResponseTooLarge is returned when a reply exceeds the read limit.
	ErrResponseTooLarge = errors.New("submit: response too large")
)

// HTTPOption configures the HTTP clients in this package.
type HTTPOption func(*httpSettings)

type httpSettings struct {
	token        string
	responseMode string
	client       *http.Client
	logger       *zap.Logger
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) HTTPOption {
	return func(s *httpSettings) {
		s.token = strings.TrimSpace(token)
	}
}

// WithClient injects the HTTP client.
func WithClient(client *http.Client) HTTPOption {
	return func(s *httpSettings) {
		if client != nil {
			s.client = client
		}
	}
}

// WithResponseMode sets the response mode used when a payload leaves it
// empty. Uploaders ignore it.
func WithResponseMode(mode string) HTTPOption {
	return func(s *httpSettings) {
		if mode != "" {
			s.responseMode = mode
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *zap.Logger) HTTPOption {
	return func(s *httpSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newHTTPSettings(options []HTTPOption) httpSettings {
	s := httpSettings{
		responseMode: ResponseModeBlocking,
		client:       &http.Client{Timeout: 60 * time.Second},
		logger:       zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// do sends req with the shared headers and reads at most maxResponseBytes of
// the reply. Replies that do not fit fail with ErrResponseTooLarge.
func (s httpSettings) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxResponseBytes {
		s.logger.Warn("response exceeds read limit",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Int("limit_bytes", maxResponseBytes),
		)
		return resp.StatusCode, nil, fmt.Errorf("%w: more than %d bytes from %s", ErrResponseTooLarge, maxResponseBytes, req.URL)
	}
	return resp.StatusCode, data, nil
}

// HTTPSubmitter POSTs payloads as JSON to a run endpoint.
type HTTPSubmitter struct {
	httpSettings
	endpoint string
}

// NewHTTPSubmitter targets endpoint.
func NewHTTPSubmitter(endpoint string, options ...HTTPOption) (*HTTPSubmitter, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("submit: endpoint is required")
	}
	return &HTTPSubmitter{httpSettings: newHTTPSettings(options), endpoint: endpoint}, nil
}

// Submit posts payload and returns the reply body. Non-2xx replies return
// ErrUnexpectedStatus alongside the result.
func (s *HTTPSubmitter) Submit(ctx context.Context, payload Payload) (Result, error) {
	if payload.ResponseMode == "" {
		payload.ResponseMode = s.responseMode
	}
	if payload.Inputs == nil {
		payload.Inputs = payload.Inputs.Clone()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("submit: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	status, data, err := s.do(req)
	if err != nil {
		return Result{StatusCode: status}, fmt.Errorf("submit: post %s: %w", s.endpoint, err)
	}
	result := Result{StatusCode: status}
	if json.Valid(data) {
		result.Body = data
	} else if len(data) > 0 {
		quoted, _ := json.Marshal(string(data))
		result.Body = quoted
	}

	s.logger.Info("form submitted",
		zap.String("endpoint", s.endpoint),
		zap.Int("status", status),
		zap.Int("inputs", len(payload.Inputs)),
		zap.Int("files", len(payload.Files)),
		zap.Duration("elapsed", time.Since(started)),
	)

	if status < 200 || status >= 300 {
		return result, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, status, s.endpoint)
	}
	return result, nil
}
