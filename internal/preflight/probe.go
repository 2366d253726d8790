// Package preflight checks the service's submission form before any browser
// starts.
package preflight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls the probe request.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	Selectors []string
}

// Probe fetches the submission page once over plain HTTP and verifies the
// expected form controls exist. A failed probe is advisory: the service
// occasionally serves degraded markup that the browser path still handles.
type Probe struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Probe.
func New(cfg Config, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Probe{cfg: cfg, logger: logger}
}

// Check fetches the page and reports which expected selectors are absent.
func (p *Probe) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("preflight canceled: %w", err)
	}

	collector := colly.NewCollector()
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(p.cfg.Timeout)
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}

	var mu sync.Mutex
	found := make(map[string]bool, len(p.cfg.Selectors))
	for _, selector := range p.cfg.Selectors {
		collector.OnHTML(selector, func(_ *colly.HTMLElement) {
			mu.Lock()
			found[selector] = true
			mu.Unlock()
		})
	}

	var fetchErr error
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(p.cfg.URL); err != nil {
		return fmt.Errorf("probe %s: %w", p.cfg.URL, err)
	}
	collector.Wait()
	if fetchErr != nil {
		return fmt.Errorf("probe %s: %w", p.cfg.URL, fetchErr)
	}

	var missing []string
	for _, selector := range p.cfg.Selectors {
		if !found[selector] {
			missing = append(missing, selector)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("submission form is missing controls: %s", strings.Join(missing, ", "))
	}

	p.logger.Debug("preflight passed", zap.String("url", p.cfg.URL), zap.Int("controls", len(p.cfg.Selectors)))
	return nil
}
