package util

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// NormalizeURI canonicalizes an author or post URI for comparison:
// scheme and host are lowercased and the path always carries a trailing
// slash. The input is returned unchanged if it cannot be parsed.
func NormalizeURI(uri string) string {
	trimmed := strings.TrimSpace(uri)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		if trimmed != "" && !strings.HasSuffix(trimmed, "/") {
			return trimmed + "/"
		}
		return trimmed
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	parsed.Fragment = ""
	parsed.RawQuery = ""

	return parsed.String()
}

// IdentityKey reduces a URI to a scheme-independent comparison key.
// Deployments are inconsistent about http vs https for the same
// identity, so equality checks must ignore the scheme.
func IdentityKey(uri string) string {
	norm := NormalizeURI(uri)
	norm = strings.TrimPrefix(norm, "https://")
	norm = strings.TrimPrefix(norm, "http://")
	return norm
}

// SameIdentity reports whether two URIs refer to the same author or post.
func SameIdentity(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return IdentityKey(a) == IdentityKey(b)
}

// SchemeVariants returns the normalized http and https forms of a URI,
// for lookups that must match either stored form.
func SchemeVariants(uri string) []string {
	key := IdentityKey(uri)
	if key == "" {
		return nil
	}
	return []string{"http://" + key, "https://" + key}
}

// HostOf returns the lowercased host of a URI, or "" if unparseable.
func HostOf(uri string) string {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// SameHost reports whether two URIs live on the same host.
func SameHost(a, b string) bool {
	ha, hb := HostOf(a), HostOf(b)
	return ha != "" && ha == hb
}

// NewAuthorURI mints a new local author id under the node base URL.
func NewAuthorURI(base string) string {
	return fmt.Sprintf("%s/author/%s/", strings.TrimSuffix(base, "/"), uuidHex())
}

// NewPostURI mints a new local post id under the node base URL.
func NewPostURI(base string) string {
	return fmt.Sprintf("%s/posts/%s/", strings.TrimSuffix(base, "/"), uuidHex())
}

func uuidHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}
