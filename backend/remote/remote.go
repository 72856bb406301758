// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/netutil"
	"github.com/bureau-foundation/glyph/lib/safemode"
)

// DefaultTimeout bounds one companion call, including retries of
// failed dials.
const DefaultTimeout = 20 * time.Second

// Endpoint is the configuration of one companion service.
type Endpoint struct {
	// URL is the companion's base URL. Conversions are posted to
	// URL/{type}/{format}.
	URL string

	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout time.Duration

	// RateLimit caps outbound conversions per second to this
	// companion. Zero disables limiting.
	RateLimit float64

	// Burst is the limiter's bucket size. Zero means 1.
	Burst int
}

// Service relays conversions to one companion.
type Service struct {
	name    string
	base    *url.URL
	formats []diagram.Format
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New returns a Service named name that posts to endpoint and
// declares formats.
func New(name string, endpoint Endpoint, formats []diagram.Format, logger *slog.Logger) (*Service, error) {
	if name == "" {
		return nil, errors.New("remote: service name is required")
	}
	if endpoint.URL == "" {
		return nil, fmt.Errorf("remote %s: url is required", name)
	}
	base, err := url.Parse(endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("remote %s: invalid url: %w", name, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote %s: url scheme must be http or https, got %q", name, base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("remote %s: url has no host", name)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("remote %s: at least one format is required", name)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := endpoint.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	service := &Service{
		name:    name,
		base:    base,
		formats: formats,
		client:  newClient(timeout, logger.With("companion", name)),
		logger:  logger,
	}
	if endpoint.RateLimit > 0 {
		burst := endpoint.Burst
		if burst <= 0 {
			burst = 1
		}
		service.limiter = rate.NewLimiter(rate.Limit(endpoint.RateLimit), burst)
	}
	return service, nil
}

// newClient returns a retrying client that only retries failed dials.
func newClient(timeout time.Duration, logger *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	client.Logger = logger
	client.CheckRetry = retryOnDialError
	client.HTTPClient.Timeout = timeout
	client.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

// retryOnDialError is a retryablehttp.CheckRetry that retries only
// when the connection was never established.
func retryOnDialError(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil && netutil.IsDialError(err), nil
}

func (s *Service) Formats() []diagram.Format { return s.formats }

func (s *Service) Variant() diagram.Variant { return diagram.VariantRemote }

func (s *Service) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(s, request); err != nil {
		return nil, err
	}
	op := "remote " + s.name

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, diagram.ExecutionFault(op, fmt.Errorf("waiting for rate limit: %w", err))
		}
	}

	endpoint := s.base.JoinPath(request.Type, string(request.Format))
	if len(request.Options) > 0 {
		query := endpoint.Query()
		names := make([]string, 0, len(request.Options))
		for name := range request.Options {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			query.Set(name, request.Options[name])
		}
		endpoint.RawQuery = query.Encode()
	}

	httpRequest, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), request.Source)
	if err != nil {
		return nil, diagram.ExecutionFault(op, fmt.Errorf("building request: %w", err))
	}
	httpRequest.Header.Set("Content-Type", "text/plain; charset=utf-8")
	httpRequest.Header.Set("Accept", request.Format.ContentType())
	httpRequest.Header.Set(safemode.Header, request.SafeMode.String())

	response, err := s.client.Do(httpRequest)
	if err != nil {
		return nil, diagram.ExecutionFault(op, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		data, err := netutil.ReadResponse(response.Body)
		if err != nil {
			return nil, diagram.ExecutionFault(op, fmt.Errorf("reading response: %w", err))
		}
		result := diagram.NewResult(request.Format, data)
		if contentType := response.Header.Get("Content-Type"); contentType != "" {
			result.ContentType = contentType
		}
		return result, nil

	case response.StatusCode >= 400 && response.StatusCode < 500:
		return nil, diagram.BackendFailure(op,
			fmt.Sprintf("%s could not render the diagram", s.name),
			netutil.ErrorBody(response.Body),
			fmt.Errorf("companion returned %s", response.Status))

	default:
		body := netutil.ErrorBody(response.Body)
		return nil, diagram.ExecutionFault(op, fmt.Errorf("companion returned %s: %s", response.Status, body))
	}
}

var _ diagram.Service = (*Service)(nil)
