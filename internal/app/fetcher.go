package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"bill_spider/internal/config"
	"bill_spider/internal/extract"
	"bill_spider/internal/models"
	unitqueue "bill_spider/internal/unit_queue"

	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// ErrInvalidBillNumber means the site reported the bill number as invalid:
// no bill exists at or above it in that chamber and session.
var ErrInvalidBillNumber = errors.New("invalid bill number")

var ErrDisallowedByRobots = errors.New("bill search path disallowed by robots.txt")

type TransientFetchError struct {
	Unit       models.Unit
	URL        string
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Unit, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Unit, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

type BillFetcher interface {
	Fetch(ctx context.Context, unit models.Unit) (*models.BillRecord, error)
}

// Renderer returns the page HTML after client-side scripts have run.
type Renderer interface {
	Render(ctx context.Context, link string) (string, error)
}

// Fetcher retrieves a bill in two steps: a plain GET that detects invalid
// bill numbers cheaply, then a rendered retrieval that is parsed into a
// record. It is not safe for concurrent use.
type Fetcher struct {
	jurisdiction config.JurisdictionConfig
	userAgent    string
	delay        time.Duration
	collector    *colly.Collector
	renderer     Renderer
	log          *logrus.Logger

	status int
	body   []byte
}

func NewFetcher(cfg *config.SpiderConfig, renderer Renderer, log *logrus.Logger) (*Fetcher, error) {
	opts := []func(*colly.Collector){
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	}
	if cfg.Logic.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.Logic.UserAgent))
	}
	c := colly.NewCollector(opts...)
	if cfg.Logic.RequestTimeoutSec > 0 {
		c.SetRequestTimeout(time.Duration(cfg.Logic.RequestTimeoutSec) * time.Second)
	}
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1}); err != nil {
		return nil, fmt.Errorf("collector limit: %w", err)
	}

	f := &Fetcher{
		jurisdiction: cfg.Jurisdiction,
		userAgent:    cfg.Logic.UserAgent,
		delay:        time.Duration(cfg.Logic.DelayMS) * time.Millisecond,
		collector:    c,
		renderer:     renderer,
		log:          log,
	}
	c.OnResponse(func(r *colly.Response) {
		f.status = r.StatusCode
		f.body = r.Body
	})
	return f, nil
}

// CheckRobots fetches robots.txt from the search host and fails when the
// bill search path is disallowed for our user agent. An unreachable or
// unparsable robots.txt is logged and ignored.
func (f *Fetcher) CheckRobots(ctx context.Context) error {
	u, err := url.Parse(f.jurisdiction.SearchURL)
	if err != nil {
		return fmt.Errorf("parse search url: %w", err)
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	f.log.WithField("url", robotsURL).Info("loading robots.txt")

	req := resty.New().R().SetContext(ctx)
	if f.userAgent != "" {
		req.SetHeader("User-Agent", f.userAgent)
	}
	res, err := req.Get(robotsURL)
	if err != nil {
		f.log.WithError(err).Warn("robots.txt unavailable, ignoring")
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(res.StatusCode(), res.Body())
	if err != nil {
		f.log.WithError(err).Warn("robots.txt unparsable, ignoring")
		return nil
	}

	if !data.TestAgent(u.Path, f.userAgent) {
		return fmt.Errorf("%s: %w", u.Path, ErrDisallowedByRobots)
	}
	return nil
}

func (f *Fetcher) Fetch(ctx context.Context, unit models.Unit) (*models.BillRecord, error) {
	link, err := unitqueue.BillURL(f.jurisdiction.SearchURL, f.jurisdiction.FixedParams, unit)
	if err != nil {
		return nil, err
	}

	status, body, err := f.retrieve(link)
	if perr := f.pace(ctx); perr != nil {
		return nil, perr
	}
	if bytes.Contains(body, []byte(f.jurisdiction.InvalidMarker)) {
		return nil, fmt.Errorf("%s: %w", unit, ErrInvalidBillNumber)
	}
	if err != nil {
		return nil, &TransientFetchError{Unit: unit, URL: link, StatusCode: status, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &TransientFetchError{Unit: unit, URL: link, StatusCode: status, Err: errors.New("non-success status")}
	}

	rendered, err := f.renderer.Render(ctx, link)
	if perr := f.pace(ctx); perr != nil {
		return nil, perr
	}
	if err != nil {
		return nil, &TransientFetchError{Unit: unit, URL: link, Err: fmt.Errorf("render: %w", err)}
	}

	return extract.FromHTML(strings.NewReader(rendered), unit.SessionLabel, unit.BillNumber, unit.Chamber)
}

func (f *Fetcher) retrieve(link string) (int, []byte, error) {
	f.status, f.body = 0, nil
	err := f.collector.Visit(link)
	return f.status, f.body, err
}

// pace waits the fixed delay between retrievals.
func (f *Fetcher) pace(ctx context.Context) error {
	if f.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.delay):
		return nil
	}
}
