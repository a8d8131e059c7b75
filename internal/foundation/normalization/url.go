package normalization

import (
	"net/url"
	"path"
	"strings"
)

// URL returns the canonical absolute form of a site URL: redundant slashes
// and dot segments are collapsed and the path always ends with a slash.
// Query and fragment are preserved.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return ensureTrailingSlash(raw)
	}
	u.Path = ensureTrailingSlash(path.Clean("/" + u.Path))
	u.RawPath = ""
	return u.String()
}

// JoinURL appends a relative path to the normalized base URL without
// producing a double slash at the seam.
func JoinURL(base, rel string) string {
	return URL(base) + strings.TrimLeft(rel, "/")
}

func ensureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
