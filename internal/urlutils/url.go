// Package urlutils provides helpers for the repository URLs handed out by
// the source hosting API: embedding credentials, deriving wiki addresses and
// scrubbing tokens from anything that is about to be logged.
package urlutils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidURL indicates that the provided URL is not valid
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrInvalidPath indicates that the URL path is not a valid repository path
	ErrInvalidPath = errors.New("invalid repository path")

	// ErrEmptyToken indicates that an empty token was provided
	ErrEmptyToken = errors.New("empty token provided")

	// ErrNotHTTPS indicates that the URL does not use HTTPS protocol
	ErrNotHTTPS = errors.New("URL must use HTTPS protocol")

	userInfoRegex = regexp.MustCompile(`(https?://)[^/@\s]+@`)
)

// ParseHTTPSURL parses a repository clone URL such as
// https://github.com/owner/repo.git. The path must name at least an owner
// and a repository.
func ParseHTTPSURL(rawURL string) (*url.URL, error) {
	if strings.HasPrefix(rawURL, "git@") {
		return nil, ErrNotHTTPS
	}
	if !strings.HasPrefix(rawURL, "https://") {
		return nil, ErrInvalidURL
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	pathParts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	if len(pathParts) < 2 || pathParts[0] == "" || pathParts[len(pathParts)-1] == "" {
		return nil, fmt.Errorf("%w: URL must include owner and repository", ErrInvalidPath)
	}

	return parsedURL, nil
}

// FormatTokenURL formats a URL with the provided token embedded as the user
// info component. The original URL is not modified.
func FormatTokenURL(parsedURL *url.URL, token string) (*url.URL, error) {
	if parsedURL == nil {
		return nil, fmt.Errorf("%w: nil URL provided", ErrInvalidURL)
	}

	if token == "" {
		return nil, ErrEmptyToken
	}

	tokenURL := *parsedURL
	tokenURL.User = url.User(token)

	return &tokenURL, nil
}

// CredentialURL returns rawURL with token embedded. An empty token returns
// rawURL unchanged.
func CredentialURL(rawURL, token string) (string, error) {
	if token == "" {
		return rawURL, nil
	}
	parsed, err := ParseHTTPSURL(rawURL)
	if err != nil {
		return "", err
	}
	tokenURL, err := FormatTokenURL(parsed, token)
	if err != nil {
		return "", err
	}
	return tokenURL.String(), nil
}

// WikiURL derives the wiki repository address from a clone URL:
// https://github.com/o/r.git becomes https://github.com/o/r.wiki.git
func WikiURL(cloneURL string) string {
	return strings.TrimSuffix(cloneURL, ".git") + ".wiki.git"
}

// Redact replaces any user info embedded in http(s) URLs found in s.
func Redact(s string) string {
	return userInfoRegex.ReplaceAllString(s, "${1}***@")
}
