package openrouter

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

// hostSet holds lower-cased host names without scheme or port.
type hostSet map[string]struct{}

var defaultAllowedHosts = hostSet{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

func (s hostSet) has(host string) bool {
	_, ok := s[host]
	return ok
}

func normalizeBaseURL(baseURL string) string {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts only an absolute https URL (or http to a loopback
// proxy) whose host is allowed. allowedHosts empty means the OpenRouter hosts.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL: %w", err)
	}
	if reason := rejectBaseURL(u, normalizeAllowedHosts(allowedHosts)); reason != "" {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: %s", baseURL, reason)
	}
	return nil
}

// rejectBaseURL returns why u is unusable, or "" when it is fine.
func rejectBaseURL(u *url.URL, allowed hostSet) string {
	host := strings.ToLower(u.Hostname())
	switch {
	case !u.IsAbs() || u.Host == "":
		return "absolute URL with host is required"
	case u.User != nil:
		return "userinfo is not allowed"
	case u.RawQuery != "" || u.Fragment != "":
		return "query and fragment are not allowed"
	case host == "":
		return "host is required"
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if !isLoopback(host) {
			return "https is required"
		}
	default:
		return "https is required"
	}

	if !allowed.has(host) {
		return fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host)
	}
	return ""
}

// normalizeAllowedHosts accepts bare hosts, host:port and full URLs.
func normalizeAllowedHosts(allowedHosts []string) hostSet {
	out := make(hostSet, len(allowedHosts))
	for _, h := range allowedHosts {
		if host := hostOf(h); host != "" {
			out[host] = struct{}{}
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}

func hostOf(entry string) string {
	v := strings.ToLower(strings.TrimSpace(entry))
	if v == "" {
		return ""
	}
	if !strings.Contains(v, "://") {
		v = "//" + v
	}
	u, err := url.Parse(v)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
