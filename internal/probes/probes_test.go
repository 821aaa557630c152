package probes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/quangmanh-dev/webscan/internal/scan"
)

func contextFor(t *testing.T, rawURL string) scan.Context {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return scan.Context{URL: parsed, RawURL: rawURL, Mode: scan.ModeSuperAdmin}
}

func severityOf(findings []scan.Finding, id string) (scan.Severity, bool) {
	for _, f := range findings {
		if f.ID == id {
			return f.Severity, true
		}
	}
	return "", false
}

func TestHTTPSEnforcementFlagsPlainHTTP(t *testing.T) {
	p := &httpsEnforcement{cfg: Config{}.withDefaults()}

	findings, err := p.Scan(context.Background(), contextFor(t, "http://example.com"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if sev, ok := severityOf(findings, "no-https"); !ok || sev != scan.SeverityCritical {
		t.Fatalf("expected critical no-https finding, got %+v", findings)
	}

	findings, _ = p.Scan(context.Background(), contextFor(t, "https://example.com"))
	if _, ok := severityOf(findings, "https-ok"); !ok {
		t.Fatalf("expected https-ok finding, got %+v", findings)
	}
}

func TestSecurityHeadersReportsMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := Config{}.withDefaults()
	p := &securityHeaders{cfg: cfg, client: newClient(cfg)}

	findings, err := p.Scan(context.Background(), contextFor(t, ts.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if _, ok := severityOf(findings, "missing-strict-transport-security"); ok {
		t.Fatal("present header must not be reported missing")
	}
	if sev, ok := severityOf(findings, "missing-content-security-policy"); !ok || sev != scan.SeverityHigh {
		t.Fatalf("expected high missing-CSP finding, got %+v", findings)
	}
	if len(findings) != len(securityHeaderSpecs)-1 {
		t.Fatalf("got %d findings, want %d", len(findings), len(securityHeaderSpecs)-1)
	}
}

func TestSecurityHeadersAllPresent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, spec := range securityHeaderSpecs {
			w.Header().Set(spec.name, "configured")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := Config{}.withDefaults()
	p := &securityHeaders{cfg: cfg, client: newClient(cfg)}

	findings, err := p.Scan(context.Background(), contextFor(t, ts.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(findings) != 1 || findings[0].ID != "headers-ok" {
		t.Fatalf("expected the single headers-ok finding, got %+v", findings)
	}
	if findings[0].Severity != scan.SeverityExcellent {
		t.Fatalf("headers-ok severity = %s", findings[0].Severity)
	}
}

func TestCookieFlags(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "1"})
		http.SetCookie(w, &http.Cookie{Name: "safe", Value: "1", Secure: true, HttpOnly: true})
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := Config{}.withDefaults()
	p := &cookieFlags{cfg: cfg, client: newClient(cfg)}

	findings, err := p.Scan(context.Background(), contextFor(t, ts.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected one finding for the unsafe cookie, got %+v", findings)
	}
	if findings[0].ID != "cookie-sid" {
		t.Fatalf("finding id = %q", findings[0].ID)
	}
	if !strings.Contains(findings[0].Title, "Secure") || !strings.Contains(findings[0].Title, "HttpOnly") {
		t.Fatalf("title should name both missing flags: %q", findings[0].Title)
	}
}

func TestServerFingerprint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx/1.14.0")
		w.Header().Set("X-Powered-By", "PHP/7.2")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := Config{}.withDefaults()
	p := &serverFingerprint{cfg: cfg, client: newClient(cfg)}

	findings, err := p.Scan(context.Background(), contextFor(t, ts.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected two disclosure findings, got %+v", findings)
	}
	for _, f := range findings {
		if f.Severity != scan.SeverityLow {
			t.Fatalf("disclosure severity = %s, want low", f.Severity)
		}
	}
}

func TestAdminPathsFindsExposedLocations(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.env", "/admin":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	cfg := Config{}.withDefaults()
	p := &adminPaths{cfg: cfg, client: newClient(cfg)}

	findings, err := p.Scan(context.Background(), contextFor(t, ts.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if sev, ok := severityOf(findings, "exposed/.env"); !ok || sev != scan.SeverityCritical {
		t.Fatalf("expected critical .env exposure, got %+v", findings)
	}
	if _, ok := severityOf(findings, "exposed/admin"); !ok {
		t.Fatalf("expected /admin exposure, got %+v", findings)
	}
	if _, ok := severityOf(findings, "exposed/wp-login.php"); ok {
		t.Fatal("404 paths must not be reported")
	}
}

func TestAdminPathsCleanTarget(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cfg := Config{}.withDefaults()
	p := &adminPaths{cfg: cfg, client: newClient(cfg)}

	findings, err := p.Scan(context.Background(), contextFor(t, ts.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(findings) != 1 || findings[0].ID != "no-exposed-paths" {
		t.Fatalf("expected the single no-exposed-paths finding, got %+v", findings)
	}
}

func TestTierProvidersExposeCatalogKeys(t *testing.T) {
	tiers := map[string][]scan.Module{
		"business": BusinessTier(Config{})(),
		"engineer": EngineerTier(Config{})(),
		"admin":    AdminTier(Config{})(),
	}
	for tier, modules := range tiers {
		if len(modules) == 0 {
			t.Fatalf("%s tier is empty", tier)
		}
		for _, m := range modules {
			if !scan.KnownKey(m.Key()) {
				t.Fatalf("%s tier module %q is not in the key catalog", tier, m.Key())
			}
		}
	}
}
