package stackapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/flachnetz/alwaysprofile/internal/errorutil"
	"github.com/flachnetz/alwaysprofile/internal/sample"
)

type (
	// Client talks to the stack service collecting the samples of all
	// profiled services.
	Client struct {
		http *httpclient.Client
		url  string
	}

	Options struct {
		Timeout       time.Duration
		RetryCount    int
		RetryInterval time.Duration
	}

	HistogramBin struct {
		InstanceID  int     `json:"instanceId"`
		TimeSlot    int64   `json:"timeslot"`
		SampleCount int     `json:"sampleCount"`
		Duration    float64 `json:"duration"`
	}

	servicesResponse struct {
		Services []string `json:"services"`
	}
)

var ErrServiceNotFound = fmt.Errorf("stackapi: %w: unknown service", errorutil.ErrNoResults)

func NewClient(host string, opts Options) (Client, error) {
	if host == "" {
		return Client{}, errors.New("host must be set")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 250 * time.Millisecond
	}
	backoff := heimdall.NewConstantBackoff(opts.RetryInterval, opts.RetryInterval/2)
	return Client{
		url: host + "/api/v1",
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(opts.Timeout),
			httpclient.WithRetryCount(opts.RetryCount),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		),
	}, nil
}

// Services lists the names of all services with samples.
func (c Client) Services(ctx context.Context) ([]string, error) {
	var r servicesResponse
	if err := c.get(ctx, "/services", &r); err != nil {
		return nil, err
	}
	return r.Services, nil
}

// Stacks returns the merged stacks the service was sampled in.
func (c Client) Stacks(ctx context.Context, service string) ([]sample.RawStack, error) {
	var stacks []sample.RawStack
	if err := c.get(ctx, "/services/"+url.PathEscape(service)+"/stack", &stacks); err != nil {
		return nil, err
	}
	return stacks, nil
}

// Histogram returns the sampled duration per instance and minute.
func (c Client) Histogram(ctx context.Context, service string) ([]HistogramBin, error) {
	var bins []HistogramBin
	if err := c.get(ctx, "/services/"+url.PathEscape(service)+"/histogram", &bins); err != nil {
		return nil, err
	}
	return bins, nil
}

func (c Client) get(ctx context.Context, path string, v interface{}) error {
	s := sentry.StartSpan(ctx, "http.client")
	s.Description = "GET " + path
	defer s.Finish()

	req, err := http.NewRequestWithContext(s.Context(), http.MethodGet, c.url+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("sentry-trace", s.ToSentryTrace())

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrServiceNotFound, path)
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("error while trying to query the stack service. http status: %d, message: %s", resp.StatusCode, b)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
