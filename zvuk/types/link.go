package types

import (
	"fmt"
	"net/url"
	"strings"
)

type LinkKind int

const (
	LinkKindTrack LinkKind = iota
	LinkKindRelease
	LinkKindBook
)

func (k LinkKind) String() string {
	switch k {
	case LinkKindTrack:
		return "track"
	case LinkKindRelease:
		return "release"
	case LinkKindBook:
		return "abook"
	}

	return "unknown"
}

type Link struct {
	Kind LinkKind
	ID   string
}

type UnrecognizedLinkError struct {
	URL string
}

func (e *UnrecognizedLinkError) Error() string {
	return fmt.Sprintf("link does not look like a zvuk.com track, release, or abook URL: %s", e.URL)
}

// ParseLink classifies a raw URL into a typed catalog link. It accepts the
// three known path shapes (/track/<id>, /release/<id>, /abook/<id>) with a
// numeric identifier and rejects everything else.
func ParseLink(rawURL string) (Link, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if nil != err {
		return Link{}, &UnrecognizedLinkError{URL: rawURL}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return Link{}, &UnrecognizedLinkError{URL: rawURL}
	}

	host := strings.ToLower(u.Hostname())
	if host != "zvuk.com" && host != "www.zvuk.com" {
		return Link{}, &UnrecognizedLinkError{URL: rawURL}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 {
		return Link{}, &UnrecognizedLinkError{URL: rawURL}
	}

	id := segments[1]
	if !isDigits(id) {
		return Link{}, &UnrecognizedLinkError{URL: rawURL}
	}

	switch segments[0] {
	case "track":
		return Link{Kind: LinkKindTrack, ID: id}, nil
	case "release":
		return Link{Kind: LinkKindRelease, ID: id}, nil
	case "abook":
		return Link{Kind: LinkKindBook, ID: id}, nil
	default:
		return Link{}, &UnrecognizedLinkError{URL: rawURL}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
