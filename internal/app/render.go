package app

import (
	"context"
	"fmt"
	"time"

	"bill_spider/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserRenderer drives one headless browser for the life of the process.
type BrowserRenderer struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
	settle   time.Duration
}

func NewBrowserRenderer(cfg config.BrowserConfig, pageLoadTimeout time.Duration) (*BrowserRenderer, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &BrowserRenderer{
		launcher: l,
		browser:  browser,
		timeout:  pageLoadTimeout,
		settle:   time.Duration(cfg.SettleMS) * time.Millisecond,
	}, nil
}

// Render opens link in a fresh tab and returns the document HTML once the
// page is loaded and its DOM stopped changing for the settle interval.
// Loading longer than the page-load timeout is an error.
func (r *BrowserRenderer) Render(ctx context.Context, link string) (string, error) {
	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	loading := page.Context(ctx).Timeout(r.timeout)
	defer loading.CancelTimeout()

	if err := loading.Navigate(link); err != nil {
		return "", fmt.Errorf("navigate %s: %w", link, err)
	}
	if err := loading.WaitStable(r.settle); err != nil {
		return "", fmt.Errorf("wait stable %s: %w", link, err)
	}
	return loading.HTML()
}

func (r *BrowserRenderer) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	r.launcher.Cleanup()
	return err
}
