// Package browser implements the automation session on headless Chrome via
// chromedp.
package browser

import (
	"context"
	"fmt"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
)

// Config controls the behavior of every session created from one Allocator.
type Config struct {
	UserAgent     string
	Headless      bool
	NavTimeout    time.Duration
	ActionTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 90 * time.Second
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 30 * time.Second
	}
	return c
}

// Allocator owns the Chrome exec allocator shared by all sessions. One
// allocator per process; one Browser per worker; one page per job.
type Allocator struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAllocator prepares the Chrome allocator. Chrome itself starts lazily
// with the first session.
func NewAllocator(cfg Config) *Allocator {
	cfg = cfg.withDefaults()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	ctx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Allocator{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close tears down the allocator and every browser spawned from it.
func (a *Allocator) Close() {
	a.cancel()
}

// NewBrowser starts one browser session for exclusive use by one worker.
func (a *Allocator) NewBrowser(logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := chromedp.NewContext(a.ctx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &Browser{
		cfg:    a.cfg,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}, nil
}

// Browser is one live Chrome session implementing hdock.Browser.
type Browser struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewPage opens a fresh tab for a single job.
func (b *Browser) NewPage(_ context.Context) (hdock.Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	return &page{
		cfg:    b.cfg,
		ctx:    tabCtx,
		cancel: cancel,
		logger: b.logger,
	}, nil
}

// Close tears down the session.
func (b *Browser) Close() {
	b.cancel()
}

type page struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// run executes actions on the tab, bounded by timeout and by the caller's
// context.
func (p *page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	return chromedp.Run(taskCtx, actions...)
}

func (p *page) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx, p.cfg.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *page) Fill(ctx context.Context, selector, value string) error {
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.SetValue(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (p *page) AttachFile(ctx context.Context, selector, path string) error {
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("attach %s to %s: %w", path, selector, err)
	}
	return nil
}

func (p *page) AttachedFileCount(ctx context.Context, selector string) (int, error) {
	var count int
	expr := fmt.Sprintf("document.querySelector(%q).files.length", selector)
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(expr, &count)); err != nil {
		return 0, fmt.Errorf("read files of %s: %w", selector, err)
	}
	return count, nil
}

func (p *page) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// SubmitAndWait clicks the submit control and waits for the service's load
// event. The listener is registered before the click so a fast redirect is
// never missed.
func (p *page) SubmitAndWait(ctx context.Context, selector string, timeout time.Duration) error {
	loaded := make(chan struct{}, 1)
	listenCtx, stopListen := context.WithCancel(p.ctx)
	defer stopListen()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if _, ok := ev.(*cdppage.EventLoadEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-loaded:
	case <-timer.C:
		return fmt.Errorf("wait navigation after %s: %w", selector, context.DeadlineExceeded)
	case <-ctx.Done():
		return fmt.Errorf("wait navigation: %w", ctx.Err())
	}

	// Let the acknowledgement page settle before the URL is read.
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("settle after navigation: %w", err)
	}
	return nil
}

func (p *page) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

func (p *page) Close() {
	p.cancel()
}

// forwardCancel propagates the caller's cancellation into a chromedp task
// without tying the tab's lifetime to the caller's context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
