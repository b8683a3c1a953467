package notify

import (
	"actionhub/internal/actions"

	"golang.org/x/text/language"
)

// Ordered like actions.SupportedLocales so match indexes line up.
var localeMatcher = language.NewMatcher([]language.Tag{
	language.Hebrew,
	language.English,
	language.Arabic,
})

// MatchLocale maps a BCP 47 tag or Accept-Language style value to a
// supported locale; ok is false when nothing matches.
func MatchLocale(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return actions.SupportedLocales[idx], true
}

// pickLocale prefers the recipient's locale, then the request's, then fallback.
func pickLocale(recipient, request, fallback string) string {
	if l, ok := MatchLocale(recipient); ok {
		return l
	}
	if l, ok := MatchLocale(request); ok {
		return l
	}
	if l, ok := MatchLocale(fallback); ok {
		return l
	}
	return actions.LocaleHebrew
}
