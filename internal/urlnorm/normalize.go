// Package urlnorm provides URL canonicalization and crawl-scope checks.
// Normalization is deterministic and idempotent so normalized URLs can be
// used directly as deduplication keys in the crawl frontier.
package urlnorm

import (
	"net/url"
	"path"
	"strings"
)

// skippedExtensions lists path extensions that never resolve to an HTML
// document worth auditing.
var skippedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".bmp": true, ".tiff": true, ".avif": true,
	".css": true, ".js": true, ".mjs": true, ".map": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".csv": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
	".webm": true, ".ogg": true, ".wav": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".exe": true, ".dmg": true, ".apk": true,
}

// trackingParams are query parameters stripped during normalization so that
// analytics-decorated links dedupe to the same frontier entry.
var trackingParams = map[string]bool{
	"gclid":      true,
	"fbclid":     true,
	"msclkid":    true,
	"dclid":      true,
	"twclid":     true,
	"igshid":     true,
	"mc_cid":     true,
	"mc_eid":     true,
	"_ga":        true,
	"_gl":        true,
	"yclid":      true,
	"wbraid":     true,
	"gbraid":     true,
	"ref_src":    true,
	"mkt_tok":    true,
	"vero_id":    true,
	"oly_enc_id": true,
}

// Normalize canonicalizes a raw URL for frontier deduplication.
// It rejects malformed URLs, non-HTTP schemes, and non-document extensions,
// strips the fragment and tracking query parameters, canonicalizes an empty
// path to "/", removes all trailing slashes from non-root paths, and
// lower-cases the result.
// Normalize(Normalize(u)) == Normalize(u) for every accepted input.
func Normalize(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}

	lowerPath := strings.ToLower(u.Path)
	if ext := path.Ext(lowerPath); ext != "" && skippedExtensions[ext] {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isTrackingParam(key) {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	if u.Path == "" {
		u.Path = "/"
	} else if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
		u.RawPath = ""
	}

	return strings.ToLower(u.String()), true
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || trackingParams[key]
}
