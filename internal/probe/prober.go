// Package probe classifies a target's availability through a staged
// DNS → TCP → HTTP state machine. The classification gates every
// downstream evidence collector and category check.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// LookupHostFunc resolves a hostname to addresses; swapped out in tests.
type LookupHostFunc func(ctx context.Context, host string) ([]string, error)

// DialFunc opens a TCP connection; swapped out in tests.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Prober runs the reachability state machine. Stages execute in order,
// each depending on the previous one succeeding, and each carries its own
// timeout, escalating from DNS to HTTP.
type Prober struct {
	cfg        config.ProbeConfig
	logger     *slog.Logger
	lookupHost LookupHostFunc
	dial       DialFunc
	transport  http.RoundTripper
}

// Option customizes a Prober, primarily for tests.
type Option func(*Prober)

// WithLookupHost replaces the DNS resolution function.
func WithLookupHost(fn LookupHostFunc) Option {
	return func(p *Prober) { p.lookupHost = fn }
}

// WithDial replaces the TCP dial function.
func WithDial(fn DialFunc) Option {
	return func(p *Prober) { p.dial = fn }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Prober) { p.transport = rt }
}

// New builds a Prober with OS resolution and dialing unless overridden.
func New(cfg config.ProbeConfig, logger *slog.Logger, opts ...Option) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Prober{
		cfg:    cfg,
		logger: logger,
		lookupHost: func(ctx context.Context, host string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, host)
		},
		transport: http.DefaultTransport,
	}
	p.dial = (&net.Dialer{}).DialContext
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe classifies the request's target. It never returns an error: every
// failure mode is a valid classification.
func (p *Prober) Probe(ctx context.Context, req models.ScanRequest) models.ReachabilityResult {
	// ── Stage 1: DNS ──────────────────────────────────────────────────────
	dnsCtx, cancel := context.WithTimeout(ctx, p.cfg.DNSTimeout)
	addrs, err := p.lookupHost(dnsCtx, req.Hostname)
	cancel()
	if err != nil || len(addrs) == 0 {
		p.logger.Debug("dns resolution failed", "hostname", req.Hostname, "error", err)
		return models.ReachabilityResult{
			State:       models.ReachOffline,
			FailedStage: "dns",
		}
	}
	ip := addrs[0]

	// ── Stage 2: TCP ──────────────────────────────────────────────────────
	port := req.ParsedURL().Port()
	if port == "" {
		if req.ParsedURL().Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}

	tcpCtx, cancel := context.WithTimeout(ctx, p.cfg.TCPTimeout)
	conn, err := p.dial(tcpCtx, "tcp", net.JoinHostPort(ip, port))
	cancel()
	if err != nil {
		p.logger.Debug("tcp connect failed", "hostname", req.Hostname, "ip", ip, "error", err)
		return models.ReachabilityResult{
			State:       models.ReachOffline,
			ResolvedIP:  ip,
			FailedStage: "tcp",
		}
	}
	conn.Close()

	// ── Stage 3: HTTP ─────────────────────────────────────────────────────
	status, headers, body, chain, err := p.fetch(ctx, req.URL)
	if err != nil {
		p.logger.Debug("http probe failed", "hostname", req.Hostname, "error", err)
		return models.ReachabilityResult{
			State:       models.ReachOffline,
			ResolvedIP:  ip,
			FailedStage: "http",
		}
	}

	state, signal := classify(status, headers, body)
	return models.ReachabilityResult{
		State:         state,
		ResolvedIP:    ip,
		HTTPStatus:    status,
		RedirectChain: chain,
		Signal:        signal,
	}
}

// fetch performs the HTTP probe, following at most MaxRedirects redirects
// and sampling at most MaxBodyBytes of the final body.
func (p *Prober) fetch(ctx context.Context, rawURL string) (int, http.Header, string, []string, error) {
	var chain []string

	client := &http.Client{
		Transport: p.transport,
		Timeout:   p.cfg.HTTPTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > p.cfg.MaxRedirects {
				return http.ErrUseLastResponse
			}
			chain = append(chain, req.URL.String())
			return nil
		},
	}

	httpCtx, cancel := context.WithTimeout(ctx, p.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(httpCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, "", nil, fmt.Errorf("probe: building request: %w", err)
	}
	req.Header.Set("User-Agent", "threatscore-probe/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, "", nil, fmt.Errorf("probe: http request: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, p.cfg.MaxBodyBytes)
	raw, err := io.ReadAll(limited)
	if err != nil {
		// A body read failure after a successful response is still a
		// classifiable response; classify on whatever arrived.
		raw = nil
	}

	return resp.StatusCode, resp.Header, string(raw), chain, nil
}

// classify applies the signature tables in priority order:
// sinkhole > WAF > parked > online. WAF deliberately outranks parked:
// when a challenge page also resembles a parking page, the conservative
// reading is that a WAF is blocking evidence collection.
func classify(status int, headers http.Header, body string) (models.Reachability, string) {
	lower := strings.ToLower(body)
	server := strings.ToLower(headers.Get("Server"))

	if sig := matchSinkhole(lower, server, headers); sig != "" {
		return models.ReachSinkhole, sig
	}
	if sig := matchWAF(status, lower, server, headers); sig != "" {
		return models.ReachWAF, sig
	}
	if sig := matchParked(lower); sig != "" {
		return models.ReachParked, sig
	}
	return models.ReachOnline, ""
}
