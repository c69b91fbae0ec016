package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"os"
	"syscall"
)

type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindRequest    ErrorKind = "request"
	KindScraping   ErrorKind = "scraping"
)

// ScrapeError is returned when the fetch phase fails. It serializes to the
// single-key {"error": "..."} result callers check before reading a record.
type ScrapeError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ScrapeError) Error() string { return e.Message }

func (e *ScrapeError) Unwrap() error { return e.Err }

func (e *ScrapeError) MarshalJSON() ([]byte, error) {
	return json.Marshal(ErrorResult{Error: e.Message})
}

// ErrorResult is the wire form of a failed scrape.
type ErrorResult struct {
	Error string `json:"error"`
}

func timeoutError(err error) *ScrapeError {
	return &ScrapeError{Kind: KindTimeout, Message: "Request timeout - website took too long to respond", Err: err}
}

func connectionError(err error) *ScrapeError {
	return &ScrapeError{Kind: KindConnection, Message: "Connection error - could not reach website", Err: err}
}

func requestError(err error) *ScrapeError {
	return &ScrapeError{Kind: KindRequest, Message: "Request error: " + err.Error(), Err: err}
}

func scrapingError(err error) *ScrapeError {
	return &ScrapeError{Kind: KindScraping, Message: "Scraping error: " + err.Error(), Err: err}
}

// classifyFetchError maps an error from the HTTP fetch onto the four
// ScrapeError variants.
func classifyFetchError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return timeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError(err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return connectionError(err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return requestError(urlErr.Err)
	}
	return scrapingError(err)
}
