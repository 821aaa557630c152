package probes

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/quangmanh-dev/webscan/internal/scan"
)

// sensitivePaths lists locations that should never be publicly reachable.
var sensitivePaths = []struct {
	path     string
	severity scan.Severity
	title    string
}{
	{"/.env", scan.SeverityCritical, "Environment file exposed"},
	{"/.git/config", scan.SeverityCritical, "Git repository metadata exposed"},
	{"/admin", scan.SeverityHigh, "Admin panel reachable without redirect"},
	{"/wp-login.php", scan.SeverityMedium, "WordPress login page exposed"},
	{"/phpinfo.php", scan.SeverityHigh, "phpinfo page exposed"},
}

// adminPaths probes for sensitive paths answering 200.
type adminPaths struct {
	cfg    Config
	client *http.Client
}

func (p *adminPaths) Key() string { return scan.KeyAdminPaths }

func (p *adminPaths) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	base := *sc.URL
	var findings []scan.Finding
	for _, probe := range sensitivePaths {
		target := base
		target.Path = probe.path
		target.RawQuery = ""

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.cfg.UserAgent)

		resp, err := p.client.Do(req)
		if err != nil {
			// Unreachable paths are the desired outcome, keep probing.
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			findings = append(findings, scan.Finding{
				ID:             "exposed" + probe.path,
				Category:       "exposure",
				Severity:       probe.severity,
				Title:          probe.title,
				Description:    fmt.Sprintf("%s answered %d for %s.", sc.URL.Host, resp.StatusCode, probe.path),
				Recommendation: fmt.Sprintf("Block or authenticate access to %s", probe.path),
				BusinessImpact: "Sensitive surfaces reachable by anyone accelerate targeted attacks",
			})
		}
	}
	if len(findings) == 0 {
		findings = append(findings, scan.Finding{
			ID:          "no-exposed-paths",
			Category:    "exposure",
			Severity:    scan.SeverityExcellent,
			Title:       "No sensitive paths exposed",
			Description: "None of the probed locations answered 200.",
		})
	}
	return findings, nil
}

// tlsProtocolFloor checks whether the target still accepts legacy TLS
// protocol versions.
type tlsProtocolFloor struct {
	cfg Config
}

func (p *tlsProtocolFloor) Key() string { return scan.KeyTLSProtocolFloor }

func (p *tlsProtocolFloor) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	if sc.URL.Scheme != "https" {
		return nil, nil
	}

	legacy := &tls.Config{
		ServerName: sc.URL.Hostname(),
		MinVersion: tls.VersionTLS10,
		MaxVersion: tls.VersionTLS11,
		// Handshake success is the signal; the chain is not being validated.
		InsecureSkipVerify: true,
	}
	conn, err := dialTLS(ctx, sc, legacy)
	if err != nil {
		return []scan.Finding{{
			ID:          "legacy-tls-rejected",
			Category:    "tls",
			Severity:    scan.SeverityExcellent,
			Title:       "Legacy TLS versions rejected",
			Description: "The target refuses TLS 1.0/1.1 handshakes.",
		}}, nil
	}
	version := conn.ConnectionState().Version
	conn.Close()

	return []scan.Finding{{
		ID:             "legacy-tls-accepted",
		Category:       "tls",
		Severity:       scan.SeverityHigh,
		Title:          "Legacy TLS version accepted",
		Description:    fmt.Sprintf("The target completed a %s handshake.", tls.VersionName(version)),
		Recommendation: "Raise the minimum TLS version to 1.2",
		BusinessImpact: "Downgrade attacks can strip modern transport protections",
	}}, nil
}
