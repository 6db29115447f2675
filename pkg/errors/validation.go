package errors

import (
	"net"
	"net/url"
	"strings"
	"unicode"
)

// ValidateStreamURL validates the URL of an event stream endpoint.
// Only http and https URLs with a host are accepted.
func ValidateStreamURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}
	for _, r := range rawURL {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidURL, "URL contains invalid control characters")
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidURL, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidURL, "URL must have a host")
	}
	return nil
}

// ValidateListenAddr validates a host:port listen address.
// An empty host (":8080") listens on every interface.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidConfig, "listen address cannot be empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Wrap(ErrCodeInvalidConfig, err, "invalid listen address %q", addr)
	}
	if port == "" {
		return New(ErrCodeInvalidConfig, "listen address %q has no port", addr)
	}
	return nil
}

// ValidateFormats checks that every requested output format is supported.
func ValidateFormats(formats []string, supported ...string) error {
	if len(formats) == 0 {
		return New(ErrCodeInvalidFormat, "no output format requested")
	}
	for _, f := range formats {
		f = strings.TrimSpace(f)
		ok := false
		for _, s := range supported {
			if f == s {
				ok = true
				break
			}
		}
		if !ok {
			return New(ErrCodeInvalidFormat, "unsupported format %q (supported: %s)", f, strings.Join(supported, ", "))
		}
	}
	return nil
}
