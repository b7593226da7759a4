package v1

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// getClientIP extracts the originating client IP, preferring reverse-proxy
// headers over the transport address.
func getClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ",") {
			candidate := strings.TrimSpace(part)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP", "True-Client-IP"} {
		if value := strings.TrimSpace(c.Get(header)); value != "" && net.ParseIP(value) != nil {
			return value
		}
	}

	return c.IP()
}

// telegramTarget validates the redirect target of a tracked link. Only
// Telegram destinations are allowed so tracked links cannot be abused as an
// open redirector.
func telegramTarget(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("to query parameter is required")
	}

	target, err := url.Parse(raw)
	if err != nil || target.Scheme != "https" {
		return nil, errors.New("to must be an https URL")
	}

	host := strings.ToLower(target.Hostname())
	if host != "t.me" && host != "telegram.me" {
		return nil, errors.New("to must point at a Telegram link")
	}
	return target, nil
}

// withStartToken appends the session token as the bot start parameter so the
// join callback can correlate the subscription with this click.
func withStartToken(target *url.URL, sessionToken string) string {
	query := target.Query()
	query.Set("start", sessionToken)
	target.RawQuery = query.Encode()
	return target.String()
}

func parseDateQuery(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	day = day.UTC()
	return &day, nil
}

func splitQueryList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
