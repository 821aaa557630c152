package probes

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/quangmanh-dev/webscan/internal/scan"
	"github.com/quangmanh-dev/webscan/internal/shared/constants"
)

// dnsRecords resolves the target host and reports resolution health.
type dnsRecords struct {
	cfg Config
}

func (p *dnsRecords) Key() string { return scan.KeyDNSRecords }

func (p *dnsRecords) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	host, _ := hostPort(sc)
	resolver := &net.Resolver{PreferGo: true}

	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return []scan.Finding{{
			ID:             "resolution-failed",
			Category:       "dns",
			Severity:       scan.SeverityHigh,
			Title:          "DNS resolution failed",
			Description:    fmt.Sprintf("Lookup for %s failed: %v.", host, err),
			Recommendation: "Verify the zone's A/AAAA records and nameserver health",
		}}, nil
	}

	findings := []scan.Finding{{
		ID:          "records",
		Category:    "dns",
		Severity:    scan.SeverityInfo,
		Title:       fmt.Sprintf("%d address record(s) found", len(addrs)),
		Description: fmt.Sprintf("%s resolves to %v.", host, addrs),
	}}

	if mx, err := resolver.LookupMX(ctx, host); err == nil && len(mx) > 0 {
		findings = append(findings, scan.Finding{
			ID:          "mx-records",
			Category:    "dns",
			Severity:    scan.SeverityInfo,
			Title:       fmt.Sprintf("%d mail exchanger(s) published", len(mx)),
			Description: fmt.Sprintf("%s publishes MX records.", host),
		})
	}
	return findings, nil
}

// tlsExpiry checks the leaf certificate's validity window.
type tlsExpiry struct {
	cfg Config
}

func (p *tlsExpiry) Key() string { return scan.KeyTLSExpiry }

func (p *tlsExpiry) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	if sc.URL.Scheme != "https" {
		return []scan.Finding{{
			ID:          "not-applicable",
			Category:    "tls",
			Severity:    scan.SeverityInfo,
			Title:       "TLS expiry not applicable",
			Description: "The target is not served over HTTPS.",
		}}, nil
	}

	conn, err := dialTLS(ctx, sc, &tls.Config{ServerName: sc.URL.Hostname()})
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", dialAddr(sc), err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no peer certificates presented by %s", dialAddr(sc))
	}
	leaf := certs[0]
	now := scanNow()

	switch {
	case now.After(leaf.NotAfter):
		return []scan.Finding{{
			ID:             "cert-expired",
			Category:       "tls",
			Severity:       scan.SeverityCritical,
			Title:          "TLS certificate has expired",
			Description:    fmt.Sprintf("Certificate for %s expired on %s.", sc.URL.Hostname(), leaf.NotAfter.Format("2006-01-02")),
			Recommendation: "Renew the certificate immediately",
			BusinessImpact: "Browsers block the site with a full-page warning",
		}}, nil
	case leaf.NotAfter.Sub(now) < constants.TLSSoonExpiryWindow:
		return []scan.Finding{{
			ID:             "cert-expiring-soon",
			Category:       "tls",
			Severity:       scan.SeverityWarning,
			Title:          "TLS certificate expires soon",
			Description:    fmt.Sprintf("Certificate for %s expires on %s.", sc.URL.Hostname(), leaf.NotAfter.Format("2006-01-02")),
			Recommendation: "Renew before expiry or enable automated renewal",
		}}, nil
	}
	return []scan.Finding{{
		ID:          "cert-ok",
		Category:    "tls",
		Severity:    scan.SeverityExcellent,
		Title:       "TLS certificate is valid",
		Description: fmt.Sprintf("Certificate valid until %s.", leaf.NotAfter.Format("2006-01-02")),
	}}, nil
}

// serverFingerprint reports version-disclosing response headers.
type serverFingerprint struct {
	cfg    Config
	client *http.Client
}

// disclosureHeaders lists headers that leak implementation details.
var disclosureHeaders = []string{"Server", "X-Powered-By", "X-AspNet-Version", "X-AspNetMvc-Version"}

func (p *serverFingerprint) Key() string { return scan.KeyServerFingerprint }

func (p *serverFingerprint) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	resp, err := fetch(ctx, p.client, p.cfg, sc.RawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var findings []scan.Finding
	for _, name := range disclosureHeaders {
		value := resp.Header.Get(name)
		if value == "" {
			continue
		}
		findings = append(findings, scan.Finding{
			ID:             "disclosure-" + name,
			Category:       "fingerprint",
			Severity:       scan.SeverityLow,
			Title:          fmt.Sprintf("%s header discloses implementation details", name),
			Description:    fmt.Sprintf("The response advertises %s: %s.", name, value),
			Recommendation: fmt.Sprintf("Remove or genericize the %s header", name),
		})
	}
	return findings, nil
}

// dialTLS performs a context-bounded TLS handshake against the target.
func dialTLS(ctx context.Context, sc scan.Context, cfg *tls.Config) (*tls.Conn, error) {
	dialer := &tls.Dialer{Config: cfg}
	conn, err := dialer.DialContext(ctx, "tcp", dialAddr(sc))
	if err != nil {
		return nil, err
	}
	return conn.(*tls.Conn), nil
}
