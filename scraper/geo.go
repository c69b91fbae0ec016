package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// GeoInfo is the subset of the ip-api.com answer used for server_location.
type GeoInfo struct {
	Status    string `json:"status"`
	Country   string `json:"country"`
	Continent string `json:"continent"`
	ISP       string `json:"isp"`
	Query     string `json:"query"`
}

// GeoLocator resolves a host and asks an ip-api.com compatible endpoint
// where it is served from.
type GeoLocator struct {
	BaseURL    string
	HTTPClient *http.Client
	Resolver   *net.Resolver
}

func NewGeoLocator(baseURL string, timeout time.Duration) *GeoLocator {
	return &GeoLocator{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Resolver:   net.DefaultResolver,
	}
}

// LookupIP returns the first IPv4 address of host, or the first address
// of any family.
func (g *GeoLocator) LookupIP(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	ips, err := g.Resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip.String(), nil
		}
	}
	return ips[0].String(), nil
}

func (g *GeoLocator) Lookup(ctx context.Context, ip string) (GeoInfo, error) {
	var info GeoInfo

	u := fmt.Sprintf("%s/%s?fields=status,country,continent,isp,query", g.BaseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return info, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return info, fmt.Errorf("decode response: %w", err)
	}
	if info.Status != "" && info.Status != "success" {
		return info, errors.New("geo lookup failed for " + ip)
	}
	return info, nil
}

// Locate resolves host and maps its country onto the location vocabulary.
func (g *GeoLocator) Locate(ctx context.Context, host string) (string, error) {
	ip, err := g.LookupIP(ctx, host)
	if err != nil {
		return "Unknown", err
	}
	info, err := g.Lookup(ctx, ip)
	if err != nil {
		return "Unknown", err
	}
	return ServerLocation(info.Country, info.Continent), nil
}

var countryLocations = map[string]string{
	"United States":  "USA",
	"United Kingdom": "UK",
	"Canada":         "Canada",
	"France":         "France",
	"Russia":         "Russia",
}

var euCountries = map[string]bool{
	"Austria": true, "Belgium": true, "Bulgaria": true, "Croatia": true,
	"Cyprus": true, "Czechia": true, "Denmark": true, "Estonia": true,
	"Finland": true, "Germany": true, "Greece": true, "Hungary": true,
	"Ireland": true, "Italy": true, "Latvia": true, "Lithuania": true,
	"Luxembourg": true, "Malta": true, "Netherlands": true, "Poland": true,
	"Portugal": true, "Romania": true, "Slovakia": true, "Slovenia": true,
	"Spain": true, "Sweden": true,
}

// ServerLocation maps an ip-api country and continent onto the values the
// classifier knows.
func ServerLocation(country, continent string) string {
	if loc, ok := countryLocations[country]; ok {
		return loc
	}
	if euCountries[country] {
		return "EU"
	}
	if continent == "Asia" {
		return "Asia"
	}
	return "Unknown"
}
