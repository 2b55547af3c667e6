// Package importcache canonicalizes recipe source URLs and caches the
// extraction result for each canonical URL.
package importcache

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/starford/ladle/internal/apperr"
)

// trackingParams are query parameters that never change page content.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"dclid":   {},
	"msclkid": {},
	"mc_cid":  {},
	"mc_eid":  {},
	"igshid":  {},
	"yclid":   {},
	"_ga":     {},
	"ref":     {},
	"ref_src": {},
	"spm":     {},
}

func isTracking(name string) bool {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "utm_") {
		return true
	}
	_, ok := trackingParams[name]
	return ok
}

// Normalize returns the cache key for rawURL. Two URLs a reader would
// consider the same page collapse to one key:
//
//   - a missing scheme defaults to https
//   - scheme and host are lower-cased; http and https stay distinct
//   - default ports (80 for http, 443 for https) are dropped
//   - userinfo and fragment are dropped
//   - utm_* and known click-id / referrer parameters are dropped; the
//     remaining parameters are sorted by key, then value
//   - duplicate slashes are collapsed, a trailing slash is stripped and an
//     empty path becomes "/"
//
// The host is otherwise kept verbatim, including any "www." prefix.
func Normalize(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", apperr.Validation("url is required")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + strings.TrimPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrValidation, err, "invalid url")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", apperr.Validation("unsupported url scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", apperr.Validation("url %q has no host", rawURL)
	}
	host = strings.TrimSuffix(host, ".")
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}

	out := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     canonicalPath(u.Path),
		RawQuery: canonicalQuery(u.RawQuery),
	}
	return out.String(), nil
}

func canonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}

type queryPair struct {
	key, value string
	text       string
}

// canonicalQuery splits the raw query on '&' only. A pair whose escapes do
// not decode is kept verbatim, so it still distinguishes the page.
func canonicalQuery(raw string) string {
	var pairs []queryPair
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(seg, "=")
		key, kerr := url.QueryUnescape(rawKey)
		value, verr := url.QueryUnescape(rawValue)
		if kerr != nil || verr != nil {
			if isTracking(rawKey) {
				continue
			}
			pairs = append(pairs, queryPair{key: rawKey, value: rawValue, text: seg})
			continue
		}
		if isTracking(key) {
			continue
		}
		pairs = append(pairs, queryPair{
			key:   key,
			value: value,
			text:  url.QueryEscape(key) + "=" + url.QueryEscape(value),
		})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		if pairs[i].value != pairs[j].value {
			return pairs[i].value < pairs[j].value
		}
		return pairs[i].text < pairs[j].text
	})

	texts := make([]string, len(pairs))
	for i, p := range pairs {
		texts[i] = p.text
	}
	return strings.Join(texts, "&")
}
