package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain page", "https://example.com/about", "https://example.com/about", true},
		{"root keeps slash", "https://example.com/", "https://example.com/", true},
		{"apex gains slash", "https://example.com", "https://example.com/", true},
		{"trailing slash stripped", "https://example.com/a/", "https://example.com/a", true},
		{"repeated trailing slashes stripped", "https://example.com/a//", "https://example.com/a", true},
		{"slash-only path collapses to root", "https://example.com//", "https://example.com/", true},
		{"fragment stripped", "https://example.com/a#section", "https://example.com/a", true},
		{"tracking params stripped", "https://example.com/a?utm_source=x&utm_medium=y", "https://example.com/a", true},
		{"gclid stripped, real param kept", "https://example.com/a?gclid=123&page=2", "https://example.com/a?page=2", true},
		{"fbclid stripped", "https://example.com/a?fbclid=abc", "https://example.com/a", true},
		{"upper-cased host and path", "https://Example.COM/About", "https://example.com/about", true},
		{"combined decorations", "https://example.com/a?utm_source=x#frag", "https://example.com/a", true},
		{"image rejected", "https://example.com/logo.png", "", false},
		{"pdf rejected", "https://example.com/whitepaper.pdf", "", false},
		{"script rejected", "https://example.com/app.js", "", false},
		{"font rejected", "https://example.com/font.woff2", "", false},
		{"mailto rejected", "mailto:hi@example.com", "", false},
		{"relative rejected", "/about", "", false},
		{"malformed rejected", "https://exa mple.com/%zz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com",
		"https://example.com/",
		"https://example.com//",
		"https://example.com/a//",
		"https://example.com/a///",
		"https://Example.com/Pricing/?utm_campaign=spring#top",
		"https://example.com/a?b=1&gclid=xyz",
		"https://example.com/path/with%20space",
	}
	for _, in := range inputs {
		once, ok := Normalize(in)
		require.True(t, ok, "input %q should normalize", in)
		twice, ok := Normalize(once)
		require.True(t, ok)
		assert.Equal(t, once, twice, "normalization of %q must be idempotent", in)
	}
}

func TestNormalizeDedupEquivalence(t *testing.T) {
	a, ok := Normalize("https://example.com/a?utm_source=x#frag")
	require.True(t, ok)
	b, ok := Normalize("https://example.com/a/")
	require.True(t, ok)
	assert.Equal(t, a, b, "decorated and trailing-slash variants share one canonical entry")
}

func TestNormalizeApexEqualsRoot(t *testing.T) {
	apex, ok := Normalize("https://example.com")
	require.True(t, ok)
	root, ok := Normalize("https://example.com/")
	require.True(t, ok)
	assert.Equal(t, root, apex, "apex and root forms share one canonical entry")
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"blog.shop.example.com", "example.com"},
		{"example.co.uk", "example.co.uk"},
		{"www.example.co.uk", "example.co.uk"},
		{"sub.example.com.au", "example.com.au"},
		{"localhost", "localhost"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RegistrableDomain(tt.host), "host %q", tt.host)
	}
}

func TestInScope(t *testing.T) {
	tests := []struct {
		name            string
		urlHost         string
		auditHost       string
		allowSubdomains bool
		want            bool
	}{
		{"same host", "example.com", "example.com", false, true},
		{"www stripped both sides", "www.example.com", "example.com", false, true},
		{"audit host has www", "example.com", "www.example.com", false, true},
		{"subdomain excluded", "blog.example.com", "example.com", false, false},
		{"subdomain included", "blog.example.com", "example.com", true, true},
		{"deep subdomain included", "a.b.example.com", "www.example.com", true, true},
		{"other domain", "evil.com", "example.com", true, false},
		{"suffix trick rejected", "example.com.evil.net", "example.com", true, false},
		{"co.uk subdomain", "shop.example.co.uk", "example.co.uk", true, true},
		{"co.uk different owner", "other.co.uk", "example.co.uk", true, false},
		{"empty host", "", "example.com", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InScope(tt.urlHost, tt.auditHost, tt.allowSubdomains))
		})
	}
}
