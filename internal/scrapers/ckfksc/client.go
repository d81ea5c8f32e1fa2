// Package ckfksc scrapes the match history of a ckfksc.com account.
package ckfksc

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"crazycar-stats/internal/components/assert"
	"crazycar-stats/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://ckfksc.com"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"

type ClientOptions struct {
	BaseUrl string
	// Timeout applies to every single request, defaults to 10 seconds.
	Timeout time.Duration
	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond float64
	Burst             int
	CloudflareBypass  bool
	// Dump receives every request/response pair when set.
	Dump telemetry.MessageOutput
}

// Client is a logged in (or about to be logged in) session on the site. It is
// safe for concurrent use once Login has returned.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("ckfksc", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetHeader("x-requested-with", "XMLHttpRequest")
	httpClient.SetHeader("referer", parsedBaseUrl.JoinPath("login").String())
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(limit, burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		tel:     tel,
	}, nil
}

// resolve turns a link found on a page into an absolute url.
func (c *Client) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return c.BaseUrl.ResolveReference(ref).String(), nil
}
