package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// Session carries the authenticated HTTP identity for one run: the auth
// cookie, a shared cookie jar, and a consistent User-Agent. The catalog
// service requires session continuity, so every request of a run, including
// stream and cover fetches, goes through the same Session.
type Session struct {
	host      *url.URL
	userAgent string
	http      *http.Client
}

func NewSession(host, token, userAgent string) (*Session, error) {
	hostURL, err := url.Parse(host)
	if nil != err {
		return nil, fmt.Errorf("failed to parse catalog host %q: %v", host, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if nil != err {
		return nil, fmt.Errorf("failed to create cookie jar: %v", err)
	}

	jar.SetCookies(hostURL, []*http.Cookie{{Name: "auth", Value: token}}) //nolint:exhaustruct

	return &Session{
		host:      hostURL,
		userAgent: userAgent,
		http:      &http.Client{Jar: jar}, //nolint:exhaustruct
	}, nil
}

// Endpoint resolves an API path against the catalog host.
func (s *Session) Endpoint(path string) string {
	return s.host.JoinPath(path).String()
}

// Do sends req through the session's client with the session identity
// attached.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", s.userAgent)

	return s.http.Do(req)
}

// Get issues a GET request to rawURL through the session.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if nil != err {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	return s.Do(req)
}
