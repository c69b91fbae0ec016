package scraper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"net"
	"strings"
	"time"
)

// TLSResult is what a successful handshake tells us about a host.
type TLSResult struct {
	Version         string
	Issuer          string
	CertificateType string
}

// TLSInspector opens a verified TLS connection to a host and reads the
// negotiated version and leaf certificate.
type TLSInspector struct {
	Timeout time.Duration
	Port    string
	// RootCAs overrides the system pool; nil means system roots.
	RootCAs *x509.CertPool
}

func NewTLSInspector(timeout time.Duration) *TLSInspector {
	return &TLSInspector{Timeout: timeout, Port: "443"}
}

// Inspect handshakes with host. port may be empty, in which case the
// inspector's default port is used.
func (i *TLSInspector) Inspect(ctx context.Context, host, port string) (*TLSResult, error) {
	if port == "" {
		port = i.Port
	}

	ctx, cancel := context.WithTimeout(ctx, i.Timeout)
	defer cancel()

	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: i.Timeout},
		Config:    &tls.Config{ServerName: host, RootCAs: i.RootCAs},
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, errors.New("no peer certificates")
	}
	cert := state.PeerCertificates[0]

	return &TLSResult{
		Version:         tlsVersionName(state.Version),
		Issuer:          NormalizeIssuer(firstOrEmpty(cert.Issuer.Organization), cert.Issuer.CommonName),
		CertificateType: CertificateType(host, cert.Subject),
	}, nil
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS13:
		return "TLS 1.3"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS10:
		return "TLS 1.0"
	default:
		return "none"
	}
}

type rule struct {
	patterns []string
	label    string
}

func (r rule) matches(s string) bool {
	for _, p := range r.patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Evaluated in order; first match wins.
var issuerRules = []rule{
	{[]string{"let's encrypt", "letsencrypt"}, "Let's Encrypt"},
	{[]string{"digicert"}, "DigiCert"},
	{[]string{"globalsign"}, "GlobalSign"},
	{[]string{"google"}, "DigiCert"},
	{[]string{"comodo", "sectigo"}, "DigiCert"},
	{[]string{"geotrust"}, "GeoTrust"},
	{[]string{"cloudflare"}, "Cloudflare"},
	{[]string{"amazon"}, "Amazon"},
}

// NormalizeIssuer maps an issuer organization and common name onto the
// issuer vocabulary the classifier was trained on.
func NormalizeIssuer(org, cn string) string {
	if org == "" {
		org = "Unknown"
	}
	full := strings.ToLower(org + " " + cn)
	for _, r := range issuerRules {
		if r.matches(full) {
			return r.label
		}
	}
	return truncate(org, 20)
}

// CertificateType guesses OV or DV from the leaf subject. Domains on the
// major-site list are always reported as OV.
func CertificateType(domain string, subject pkix.Name) string {
	if containsAny(strings.ToLower(domain), majorCertificateSites) {
		return "OV"
	}
	if len(subject.Organization) > 0 && len(subject.Locality) > 0 {
		return "OV"
	}
	return "DV"
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
