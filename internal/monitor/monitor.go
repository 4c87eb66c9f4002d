// Package monitor polls service endpoints and reports whether they are up.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval = 30 * time.Second
	defaultTimeout  = 10 * time.Second
)

// Target is a named URL to check.
type Target struct {
	Name string
	URL  string
}

// ParseTarget accepts "name=url" or a bare URL, which is its own name.
func ParseTarget(s string) (Target, error) {
	name, url, ok := strings.Cut(s, "=")
	if !ok {
		name, url = s, s
	}
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if url == "" || !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
		return Target{}, fmt.Errorf("invalid target %q: want name=http(s)://host/path", s)
	}
	if name == "" {
		name = url
	}
	return Target{Name: name, URL: url}, nil
}

// Result is the outcome of one check.
type Result struct {
	Target     Target
	Up         bool
	StatusCode int
	Latency    time.Duration
	Err        error
	CheckedAt  time.Time
}

// Monitor checks its targets concurrently.
type Monitor struct {
	targets  []Target
	client   *http.Client
	interval time.Duration
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(m *Monitor) { m.client = c }
}

func New(targets []Target, opts ...Option) *Monitor {
	m := &Monitor{
		targets:  targets,
		client:   &http.Client{Timeout: defaultTimeout},
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Interval() time.Duration { return m.interval }

// Once checks every target and returns the results in target order. A
// failing target is reported in its Result, never as an error; the error is
// only ctx's.
func (m *Monitor) Once(ctx context.Context) ([]Result, error) {
	results := make([]Result, len(m.targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range m.targets {
		g.Go(func() error {
			results[i] = m.check(gctx, target)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run checks immediately and then every interval, handing each round to fn,
// until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, fn func([]Result)) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		results, err := m.Once(ctx)
		if err != nil {
			return err
		}
		fn(results)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) check(ctx context.Context, target Target) Result {
	res := Result{Target: target, CheckedAt: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		res.Err = err
		return res
	}
	start := time.Now()
	resp, err := m.client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Up = resp.StatusCode >= 200 && resp.StatusCode < 400
	if !res.Up {
		res.Err = fmt.Errorf("unexpected status %s", resp.Status)
	}
	return res
}
