// Package policy loads and evaluates a site's crawl-policy document and
// expands its sitemap into candidate URLs. Rules keep document order so that
// first-match-wins reflects the order the site operator wrote them in, not
// rule specificity.
package policy

import (
	"bufio"
	"context"
	"net/url"
	"strings"
)

// FetchFunc retrieves the body of a well-known document. A false return means
// the document is absent or unreachable, which callers treat as "no policy".
type FetchFunc func(ctx context.Context, rawURL string) ([]byte, bool)

// Rule is a single ordered crawl-policy entry. Matching is by path prefix.
type Rule struct {
	Prefix string `json:"prefix"`
	Allow  bool   `json:"allow"`
}

// ParseRules parses a robots-style policy document into an ordered rule list.
// Only directives under an applicable user-agent block are collected: the
// wildcard agent, any agent token containing "bot", or the crawler's own
// token. Unknown directives and comments are ignored.
func ParseRules(content, agentToken string) []Rule {
	agentToken = strings.ToLower(agentToken)

	var rules []Rule
	applies := false
	lastWasAgent := false

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			lastWasAgent = false
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			lastWasAgent = false
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			agent := strings.ToLower(value)
			match := agent == "*" || strings.Contains(agent, "bot") ||
				(agentToken != "" && strings.Contains(agent, agentToken))
			// Stacked user-agent lines open one shared block.
			if lastWasAgent {
				applies = applies || match
			} else {
				applies = match
			}
			lastWasAgent = true

		case "disallow":
			if applies && value != "" {
				rules = append(rules, Rule{Prefix: strings.ToLower(value), Allow: false})
			}
			lastWasAgent = false

		case "allow":
			if applies && value != "" {
				rules = append(rules, Rule{Prefix: strings.ToLower(value), Allow: true})
			}
			lastWasAgent = false

		default:
			lastWasAgent = false
		}
	}

	return rules
}

// Allowed reports whether a path may be fetched under the given rules.
// The first rule whose prefix matches the lower-cased path wins; a path that
// matches no rule is allowed.
func Allowed(urlPath string, rules []Rule) bool {
	p := strings.ToLower(urlPath)
	if p == "" {
		p = "/"
	}
	for _, r := range rules {
		if strings.HasPrefix(p, r.Prefix) {
			return r.Allow
		}
	}
	return true
}

// LoadRules fetches the policy document from the site's well-known path and
// parses it. Absence or fetch failure yields an empty rule list, never an
// error: a site without a policy document allows everything.
func LoadRules(ctx context.Context, fetch FetchFunc, site *url.URL, agentToken string) []Rule {
	policyURL := site.Scheme + "://" + site.Host + "/robots.txt"
	body, ok := fetch(ctx, policyURL)
	if !ok {
		return nil
	}
	return ParseRules(string(body), agentToken)
}
