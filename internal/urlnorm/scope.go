package urlnorm

import "strings"

// multiPartSuffixes are second-level labels that combine with a two-letter
// country code to form a public suffix (co.uk, com.au, ac.jp, ...). A host
// ending in one of these keeps three labels as its registrable domain.
var multiPartSuffixes = map[string]bool{
	"co":  true,
	"com": true,
	"net": true,
	"org": true,
	"gov": true,
	"edu": true,
	"ac":  true,
	"or":  true,
	"ne":  true,
}

// RegistrableDomain reduces a host to its registrable unit: the last two
// labels, or the last three when the second-to-last label is a known
// multi-part public suffix under a two-letter country code
// (www.example.co.uk -> example.co.uk).
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	labels := strings.Split(host, ".")
	n := len(labels)
	if n <= 2 {
		return host
	}
	if len(labels[n-1]) == 2 && multiPartSuffixes[labels[n-2]] {
		return strings.Join(labels[n-3:], ".")
	}
	return strings.Join(labels[n-2:], ".")
}

// InScope reports whether urlHost belongs to the audited site. With
// allowSubdomains the registrable domains must match; otherwise the hosts
// must be equal after stripping a leading "www." from both sides.
func InScope(urlHost, auditHost string, allowSubdomains bool) bool {
	urlHost = strings.ToLower(urlHost)
	auditHost = strings.ToLower(auditHost)
	if urlHost == "" || auditHost == "" {
		return false
	}
	if allowSubdomains {
		return RegistrableDomain(urlHost) == RegistrableDomain(auditHost)
	}
	return strings.TrimPrefix(urlHost, "www.") == strings.TrimPrefix(auditHost, "www.")
}
