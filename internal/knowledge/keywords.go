package knowledge

import (
	"strings"
	"unicode"
)

// stopWords are dropped during keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {}, "from": {}, "into": {},
	"when": {}, "then": {}, "than": {}, "should": {}, "would": {}, "could": {}, "have": {}, "has": {},
	"had": {}, "are": {}, "was": {}, "were": {}, "will": {}, "not": {}, "but": {}, "all": {},
	"can": {}, "its": {}, "our": {}, "your": {}, "their": {}, "them": {}, "they": {}, "been": {},
	"being": {}, "also": {}, "only": {}, "some": {}, "such": {}, "about": {}, "after": {}, "before": {},
	"over": {}, "under": {}, "via": {}, "per": {}, "each": {}, "any": {}, "more": {}, "most": {},
	"other": {}, "which": {}, "what": {}, "where": {}, "who": {}, "why": {}, "how": {}, "there": {},
	"these": {}, "those": {}, "does": {}, "did": {}, "make": {}, "just": {}, "very": {}, "need": {},
	"needs": {}, "like": {}, "get": {}, "got": {}, "you": {}, "too": {},
}

// ExtractKeywords returns the distinct keywords of text in first-seen order.
// Tokens are lowercased and stripped of punctuation other than '-' and '_';
// stop words and tokens of two characters or fewer are dropped. Compound
// identifiers such as LoginButton also contribute their lowercase parts.
func ExtractKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return ' '
	}, text)

	var keywords []string
	seen := make(map[string]struct{})
	add := func(token string) {
		token = strings.ToLower(token)
		if len([]rune(token)) <= 2 {
			return
		}
		if _, stop := stopWords[token]; stop {
			return
		}
		if _, dup := seen[token]; dup {
			return
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	for _, token := range strings.Fields(cleaned) {
		add(token)
		if parts := splitCamel(token); len(parts) > 1 {
			for _, part := range parts {
				add(part)
			}
		}
	}
	return keywords
}

// splitCamel splits a token at lower-to-upper case boundaries, so
// "useAuthHook" yields use, Auth, Hook and "HTTPServer" yields HTTP, Server.
func splitCamel(token string) []string {
	runes := []rune(token)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
		// Acronym followed by a word: the last upper starts the next part
		if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}
