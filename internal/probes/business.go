package probes

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/quangmanh-dev/webscan/internal/scan"
)

// headerSpec describes one security header check: how bad its absence is and
// what to tell the operator.
type headerSpec struct {
	name           string
	severity       scan.Severity
	recommendation string
	businessImpact string
}

// securityHeaderSpecs lists the response headers the business tier expects,
// in emission order.
var securityHeaderSpecs = []headerSpec{
	{
		name:           "Strict-Transport-Security",
		severity:       scan.SeverityHigh,
		recommendation: "Add 'Strict-Transport-Security: max-age=31536000; includeSubDomains'",
		businessImpact: "Visitors can be downgraded to plaintext HTTP by an on-path attacker",
	},
	{
		name:           "Content-Security-Policy",
		severity:       scan.SeverityHigh,
		recommendation: "Implement a strict Content-Security-Policy appropriate for the application",
		businessImpact: "Injected scripts run unrestricted, enabling data theft and defacement",
	},
	{
		name:           "X-Frame-Options",
		severity:       scan.SeverityMedium,
		recommendation: "Add 'X-Frame-Options: DENY' or 'SAMEORIGIN'",
		businessImpact: "Pages can be framed for clickjacking",
	},
	{
		name:           "X-Content-Type-Options",
		severity:       scan.SeverityMedium,
		recommendation: "Add 'X-Content-Type-Options: nosniff'",
	},
	{
		name:           "Referrer-Policy",
		severity:       scan.SeverityLow,
		recommendation: "Add 'Referrer-Policy: strict-origin-when-cross-origin' or 'no-referrer'",
	},
}

// httpsEnforcement flags targets that are not served over HTTPS.
type httpsEnforcement struct {
	cfg    Config
	client *http.Client
}

func (p *httpsEnforcement) Key() string { return scan.KeyHTTPSEnforcement }

func (p *httpsEnforcement) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	if sc.URL.Scheme != "https" {
		return []scan.Finding{{
			ID:             "no-https",
			Category:       "transport",
			Severity:       scan.SeverityCritical,
			Title:          "Site is not served over HTTPS",
			Description:    fmt.Sprintf("The target %s uses plaintext HTTP.", sc.URL.Host),
			Recommendation: "Serve all traffic over HTTPS and redirect HTTP to HTTPS",
			BusinessImpact: "All visitor traffic, including credentials, is readable in transit",
		}}, nil
	}
	return []scan.Finding{{
		ID:          "https-ok",
		Category:    "transport",
		Severity:    scan.SeverityExcellent,
		Title:       "Site is served over HTTPS",
		Description: "The target enforces encrypted transport.",
	}}, nil
}

// securityHeaders fetches the target and reports headers missing from the
// baseline table.
type securityHeaders struct {
	cfg    Config
	client *http.Client
}

func (p *securityHeaders) Key() string { return scan.KeySecurityHeaders }

func (p *securityHeaders) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	resp, err := fetch(ctx, p.client, p.cfg, sc.RawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	findings := make([]scan.Finding, 0, len(securityHeaderSpecs))
	missing := 0
	for _, spec := range securityHeaderSpecs {
		if resp.Header.Get(spec.name) != "" {
			continue
		}
		missing++
		findings = append(findings, scan.Finding{
			ID:             "missing-" + strings.ToLower(spec.name),
			Category:       "headers",
			Severity:       spec.severity,
			Title:          fmt.Sprintf("Missing %s header", spec.name),
			Description:    fmt.Sprintf("The response from %s does not set %s.", sc.URL.Host, spec.name),
			Recommendation: spec.recommendation,
			BusinessImpact: spec.businessImpact,
		})
	}
	if missing == 0 {
		findings = append(findings, scan.Finding{
			ID:          "headers-ok",
			Category:    "headers",
			Severity:    scan.SeverityExcellent,
			Title:       "All expected security headers present",
			Description: "The target sets every header in the baseline set.",
		})
	}
	return findings, nil
}

// cookieFlags inspects Set-Cookie headers for missing Secure/HttpOnly flags.
type cookieFlags struct {
	cfg    Config
	client *http.Client
}

func (p *cookieFlags) Key() string { return scan.KeyCookieFlags }

func (p *cookieFlags) Scan(ctx context.Context, sc scan.Context) ([]scan.Finding, error) {
	resp, err := fetch(ctx, p.client, p.cfg, sc.RawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var findings []scan.Finding
	for _, cookie := range resp.Cookies() {
		var flags []string
		if !cookie.Secure {
			flags = append(flags, "Secure")
		}
		if !cookie.HttpOnly {
			flags = append(flags, "HttpOnly")
		}
		if len(flags) == 0 {
			continue
		}
		findings = append(findings, scan.Finding{
			ID:             "cookie-" + cookie.Name,
			Category:       "cookies",
			Severity:       scan.SeverityMedium,
			Title:          fmt.Sprintf("Cookie %q missing %s", cookie.Name, strings.Join(flags, "/")),
			Description:    fmt.Sprintf("Set-Cookie for %q lacks the %s flag(s).", cookie.Name, strings.Join(flags, ", ")),
			Recommendation: "Set Secure and HttpOnly on all session-bearing cookies",
			BusinessImpact: "Session cookies can leak over plaintext or to injected scripts",
		})
	}
	return findings, nil
}

// fetch issues a GET with the shared client and user agent.
func fetch(ctx context.Context, client *http.Client, cfg Config, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	return client.Do(req)
}
