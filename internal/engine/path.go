package engine

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
)

var placeholderPattern = regexp.MustCompile(`:([a-zA-Z0-9_]+)`)

// ResolvedURL is a URL template with its placeholders filled in.
type ResolvedURL struct {
	URL *url.URL
	// Unused holds supplied segments that had no placeholder.
	Unused []string
}

// ResolvePath replaces the i-th :name placeholder of the template's path
// with the i-th segment, escaped as a single path segment. Only the path is
// scanned, so a port in the authority is never taken for a placeholder.
// Scheme, host and query are kept; the fragment is dropped.
func ResolvePath(template string, segments []string) (*ResolvedURL, error) {
	u, err := url.Parse(template)
	if err != nil {
		return nil, apierrors.Validation("invalid url template %q: %v", template, err)
	}

	path := u.EscapedPath()
	matches := placeholderPattern.FindAllStringSubmatchIndex(path, -1)
	if len(segments) < len(matches) {
		m := matches[len(segments)]
		return nil, apierrors.MissingPathParameter(path[m[2]:m[3]], len(matches), len(segments))
	}

	var b strings.Builder
	last := 0
	for i, m := range matches {
		b.WriteString(path[last:m[0]])
		b.WriteString(url.PathEscape(segments[i]))
		last = m[1]
	}
	b.WriteString(path[last:])

	rawPath := b.String()
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, apierrors.Validation("invalid url template %q: %v", template, err)
	}

	out := *u
	out.Path = decoded
	out.RawPath = rawPath
	out.Fragment = ""
	out.RawFragment = ""

	var unused []string
	if len(segments) > len(matches) {
		unused = append(unused, segments[len(matches):]...)
	}
	return &ResolvedURL{URL: &out, Unused: unused}, nil
}
