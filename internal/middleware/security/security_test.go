package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "198.51.100.7:5555", "", "", "198.51.100.7"},
		{"untrusted proxy ignored", "198.51.100.7:5555", "1.1.1.1", "", "198.51.100.7"},
		{"trusted proxy xff", "10.0.0.2:80", "1.1.1.1, 10.0.0.2", "", "1.1.1.1"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "2.2.2.2", "2.2.2.2"},
		{"custom trusted proxy", "203.0.113.4:80", "3.3.3.3", "", "3.3.3.3"},
		{"garbage xff", "10.0.0.2:80", "not-an-ip", "", "10.0.0.2"},
		{"no port", "198.51.100.7", "", "", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}

	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Fatal("invalid CIDR should fail")
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal", http.MethodGet, "/expenses/month/2025-06", "Mozilla/5.0", false},
		{"traversal", http.MethodGet, "/expenses/../../etc/passwd", "", true},
		{"query injection", http.MethodGet, "/insight?month=2025-06&lang=javascript:alert(1)", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Fatalf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := d.GetMetrics().SuspiciousRequests; got != 4 {
		t.Fatalf("SuspiciousRequests = %d, want 4", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/expenses", nil))
	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("header %s missing", name)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	tlsReq := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, tlsReq)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}
