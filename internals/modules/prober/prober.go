package prober

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"pulsewatch/config"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/metrics"

	"github.com/rs/zerolog"
)

// Outcome is the result of one probe. A code of 0 means no HTTP status
// was observed (transport failure or a non-HTTP check).
type Outcome struct {
	IsUp       bool
	StatusCode int
	LatencyMs  int64
}

// Prober runs one bounded network check. It never returns an error:
// every target-side failure is an Outcome with IsUp=false, which keeps
// "target is down" distinct from "the engine is broken".
type Prober struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *zerolog.Logger
}

func New(httpClient *http.Client, cfg *config.ProbeConfig, logger *zerolog.Logger) *Prober {
	return &Prober{
		httpClient: httpClient,
		timeout:    cfg.Timeout,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

func (p *Prober) Probe(ctx context.Context, target string, kind monitor.Kind) Outcome {
	start := time.Now()

	var out Outcome
	switch kind {
	case monitor.KindTCP, monitor.KindPING:
		out = p.probeTCP(target)
	default:
		out = p.probeHTTP(ctx, target)
	}
	out.LatencyMs = time.Since(start).Milliseconds()

	outcome := "down"
	if out.IsUp {
		outcome = "up"
	}
	metrics.ChecksTotal.WithLabelValues(string(kind), outcome).Inc()
	metrics.ProbeDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	return out
}

func (p *Prober) probeHTTP(ctx context.Context, target string) Outcome {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", target).Msg("failed to build probe request")
		return Outcome{IsUp: false, StatusCode: 0}
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// DNS error, connection refused, TLS failure or timeout: all of
		// them are a down target, none of them carry a status code.
		p.logger.Debug().Err(err).Str("url", target).Msg("probe transport failure")
		return Outcome{IsUp: false, StatusCode: 0}
	}
	defer resp.Body.Close()

	return Outcome{
		IsUp:       resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
	}
}

// probeTCP checks plain reachability of the target's host and port.
// PING monitors share this path: raw ICMP needs elevated privileges,
// so a connect attempt stands in for an echo.
func (p *Prober) probeTCP(target string) Outcome {
	addr, err := dialAddress(target)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", target).Msg("unresolvable probe target")
		return Outcome{IsUp: false}
	}

	conn, err := net.DialTimeout("tcp", addr, p.timeout)
	if err != nil {
		p.logger.Debug().Err(err).Str("addr", addr).Msg("tcp probe failed")
		return Outcome{IsUp: false}
	}
	_ = conn.Close()

	return Outcome{IsUp: true}
}

// dialAddress extracts host:port from a target URL, defaulting the
// port from the scheme (443 for https, else 80).
func dialAddress(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	host := u.Hostname()
	if host == "" {
		// bare "host:port" targets parse with an empty scheme
		return target, nil
	}

	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	return net.JoinHostPort(host, port), nil
}
