// Package probes holds the three tier module sets. Each probe satisfies the
// scan module contract: consume a scan context, produce findings. Detection
// depth is intentionally shallow; the orchestration core does not depend on
// any probe's internals.
package probes

import (
	"net"
	"net/http"
	"time"

	"github.com/quangmanh-dev/webscan/internal/scan"
)

// Config carries the knobs shared by all probes.
type Config struct {
	HTTPTimeout time.Duration
	UserAgent   string
}

const defaultUserAgent = "webscan/1.0"

// scanNow is an injection seam for certificate-window tests.
var scanNow = time.Now

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}

// BusinessTier provides the core module set, run for every mode.
func BusinessTier(cfg Config) scan.TierProvider {
	cfg = cfg.withDefaults()
	return func() []scan.Module {
		client := newClient(cfg)
		return []scan.Module{
			&httpsEnforcement{cfg: cfg, client: client},
			&securityHeaders{cfg: cfg, client: client},
			&cookieFlags{cfg: cfg, client: client},
		}
	}
}

// EngineerTier provides the engineer module set.
func EngineerTier(cfg Config) scan.TierProvider {
	cfg = cfg.withDefaults()
	return func() []scan.Module {
		client := newClient(cfg)
		return []scan.Module{
			&dnsRecords{cfg: cfg},
			&tlsExpiry{cfg: cfg},
			&serverFingerprint{cfg: cfg, client: client},
		}
	}
}

// AdminTier provides the super-admin module set.
func AdminTier(cfg Config) scan.TierProvider {
	cfg = cfg.withDefaults()
	return func() []scan.Module {
		client := newClient(cfg)
		return []scan.Module{
			&adminPaths{cfg: cfg, client: client},
			&tlsProtocolFloor{cfg: cfg},
		}
	}
}

// newClient builds the outbound HTTP client probes share. Redirects are not
// followed so header probes see the original response.
func newClient(cfg Config) *http.Client {
	return &http.Client{
		Timeout: cfg.HTTPTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// hostPort extracts host and port from a scan target, defaulting the port
// from the scheme.
func hostPort(sc scan.Context) (string, string) {
	host := sc.URL.Hostname()
	port := sc.URL.Port()
	if port == "" {
		if sc.URL.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}
	return host, port
}

// dialAddr formats the TLS dial address for a target.
func dialAddr(sc scan.Context) string {
	host, port := hostPort(sc)
	return net.JoinHostPort(host, port)
}
