// File: channel/uri.go
// Package channel: destination URI parsing, canonicalization, and
// equality, per the registry's resolve() policy.
// Author: momentics <momentics@gmail.com>

package channel

import (
	"net/url"
	"sort"
	"strings"
)

// recognizedSchemes lists the schemes eligible for on-demand outbound
// channel creation (§4.3 policy 2 / §6.2).
var recognizedSchemes = map[string]bool{
	"ws": true, "wss": true, "http": true, "https": true,
}

// ParsedURI holds the comparison-relevant pieces of a destination URI.
type ParsedURI struct {
	Scheme   string
	UserInfo string
	Host     string
	Port     string
	Path     string
	Query    string
	Fragment string
	Raw      *url.URL
}

// ParseDestination attempts to parse dst as a URI. ok is false if dst
// does not parse as an absolute URI with both scheme and host (a bare
// identity like "esp32-1" is never mistaken for a URI).
func ParseDestination(dst string) (p ParsedURI, ok bool) {
	u, err := url.Parse(dst)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ParsedURI{}, false
	}
	userInfo := ""
	if u.User != nil {
		userInfo = u.User.String()
	}
	return ParsedURI{
		Scheme:   strings.ToLower(u.Scheme),
		UserInfo: userInfo,
		Host:     strings.ToLower(u.Hostname()),
		Port:     u.Port(),
		Path:     normalizePath(u.Path),
		Query:    canonicalQuery(u.RawQuery),
		Fragment: u.Fragment,
		Raw:      u,
	}, true
}

// IsOutboundScheme reports whether scheme is eligible for on-demand
// outbound channel creation.
func IsOutboundScheme(scheme string) bool {
	return recognizedSchemes[strings.ToLower(scheme)]
}

// Canonical renders p back into a canonical URI string: scheme,
// user-info, host, port, normalized path, and query — fragment is
// deliberately dropped (it is consumed as channel config, not identity).
func (p ParsedURI) Canonical() string {
	var b strings.Builder
	b.WriteString(p.Scheme)
	b.WriteString("://")
	if p.UserInfo != "" {
		b.WriteString(p.UserInfo)
		b.WriteByte('@')
	}
	b.WriteString(p.Host)
	if p.Port != "" {
		b.WriteByte(':')
		b.WriteString(p.Port)
	}
	b.WriteString(p.Path)
	if p.Query != "" {
		b.WriteByte('?')
		b.WriteString(p.Query)
	}
	return b.String()
}

// Equal implements canonical-URI equality: scheme, user-info, host,
// port, normalized path, and query string must match; fragment is
// never compared.
func (p ParsedURI) Equal(other ParsedURI) bool {
	return p.Scheme == other.Scheme &&
		p.UserInfo == other.UserInfo &&
		p.Host == other.Host &&
		p.Port == other.Port &&
		p.Path == other.Path &&
		p.Query == other.Query
}

// DestinationsEqual implements dst_is_equal: byte equality, except when
// both sides parse as URIs, in which case canonical-URI equality
// applies. A URI compared against a non-URI is always false — this is
// a deliberate, surprising rule carried over from the source (§9).
func DestinationsEqual(a, b string) bool {
	if a == b {
		return true
	}
	pa, okA := ParseDestination(a)
	pb, okB := ParseDestination(b)
	if okA && okB {
		return pa.Equal(pb)
	}
	return false
}

// FragmentConfig parses a URI fragment as an ampersand-separated
// key=value list, the config overrides recognized for on-demand
// outbound channels (ssl_ca_file, ssl_client_cert_file, ssl_server_name,
// reconnect_interval_min, reconnect_interval_max, idle_close_timeout).
func FragmentConfig(fragment string) map[string]string {
	out := make(map[string]string)
	if fragment == "" {
		return out
	}
	for _, kv := range strings.Split(fragment, "&") {
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		k, _ := url.QueryUnescape(parts[0])
		v := ""
		if len(parts) == 2 {
			v, _ = url.QueryUnescape(parts[1])
		}
		out[k] = v
	}
	return out
}

// normalizePath collapses an empty path to "/" so "scheme://host" and
// "scheme://host/" compare equal, matching typical URI normalization.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// canonicalQuery sorts query parameters so that key order in the
// original string does not affect equality.
func canonicalQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for j, v := range vs {
			if i+j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}
