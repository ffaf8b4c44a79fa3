// Package server normalizes and validates HTTP origins for the admin
// dashboard's WebSocket event feed.
package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// originChecker holds the normalized allow-list for WebSocket upgrades.
// It is built once from configuration, so no lock is needed.
type originChecker struct {
	allowed  map[string]struct{}
	allowAll bool
	log      logrus.FieldLogger
}

func newOriginChecker(origins []string, log logrus.FieldLogger) *originChecker {
	checker := &originChecker{
		allowed: make(map[string]struct{}, len(origins)),
		log:     log,
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			checker.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.WithField("origin", origin).Warn("ignoring invalid origin in configuration")
			continue
		}
		checker.allowed[normalized] = struct{}{}
	}

	return checker
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (c *originChecker) check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		return false
	}

	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}

	if c.allowAll {
		return true
	}
	if _, exists := c.allowed[normalized]; exists {
		return true
	}

	c.log.WithField("origin", header).Warn("blocked WebSocket connection from disallowed origin")
	return false
}
