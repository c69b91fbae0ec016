package scraper

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalizeIssuer(t *testing.T) {
	tests := []struct {
		org, cn string
		want    string
	}{
		{"Let's Encrypt", "R3", "Let's Encrypt"},
		{"", "letsencrypt.org R11", "Let's Encrypt"},
		{"DigiCert Inc", "DigiCert TLS RSA SHA256 2020 CA1", "DigiCert"},
		{"GlobalSign nv-sa", "GlobalSign RSA OV SSL CA 2018", "GlobalSign"},
		{"Google Trust Services", "WR2", "DigiCert"},
		{"Sectigo Limited", "Sectigo RSA Domain Validation", "DigiCert"},
		{"COMODO CA Limited", "", "DigiCert"},
		{"GeoTrust Inc.", "", "GeoTrust"},
		{"Cloudflare, Inc.", "Cloudflare Inc ECC CA-3", "Cloudflare"},
		{"Amazon", "Amazon RSA 2048 M02", "Amazon"},
		{"Some Very Long Certificate Authority Name", "", "Some Very Long Certi"},
		{"", "", "Unknown"},
	}
	for _, tt := range tests {
		if got := NormalizeIssuer(tt.org, tt.cn); got != tt.want {
			t.Errorf("NormalizeIssuer(%q, %q) = %q, want %q", tt.org, tt.cn, got, tt.want)
		}
	}
}

func TestCertificateType(t *testing.T) {
	tests := []struct {
		domain  string
		subject pkix.Name
		want    string
	}{
		{"www.github.com", pkix.Name{}, "OV"},
		{"shop.example", pkix.Name{Organization: []string{"Shop"}, Locality: []string{"Berlin"}}, "OV"},
		{"shop.example", pkix.Name{Organization: []string{"Shop"}}, "DV"},
		{"shop.example", pkix.Name{CommonName: "shop.example"}, "DV"},
	}
	for _, tt := range tests {
		if got := CertificateType(tt.domain, tt.subject); got != tt.want {
			t.Errorf("CertificateType(%q, %+v) = %q, want %q", tt.domain, tt.subject, got, tt.want)
		}
	}
}

func TestTLSVersionName(t *testing.T) {
	if got := tlsVersionName(0x0304); got != "TLS 1.3" {
		t.Errorf("got %q", got)
	}
	if got := tlsVersionName(0x0300); got != "none" {
		t.Errorf("got %q", got)
	}
}

func newTestInspector(srv *httptest.Server) *TLSInspector {
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	_, port, _ := net.SplitHostPort(srv.Listener.Addr().String())
	i := NewTLSInspector(5 * time.Second)
	i.RootCAs = pool
	i.Port = port
	return i
}

func TestInspectHandshake(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	res, err := newTestInspector(srv).Inspect(context.Background(), host, port)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if res.Version != "TLS 1.3" {
		t.Errorf("Version = %q, want TLS 1.3", res.Version)
	}
	if res.Issuer != "Acme Co" {
		t.Errorf("Issuer = %q, want Acme Co", res.Issuer)
	}
	if res.CertificateType != "DV" {
		t.Errorf("CertificateType = %q, want DV", res.CertificateType)
	}
}

func TestInspectUntrustedCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	host, port, _ := net.SplitHostPort(srv.Listener.Addr().String())
	i := NewTLSInspector(2 * time.Second)
	i.RootCAs = x509.NewCertPool()

	if _, err := i.Inspect(context.Background(), host, port); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestInspectConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	if _, err := NewTLSInspector(time.Second).Inspect(context.Background(), host, port); err == nil {
		t.Fatal("expected dial failure")
	}
}
