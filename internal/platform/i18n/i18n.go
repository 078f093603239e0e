// Package i18n localizes user-facing error messages. Keys are the English
// messages used by the services; Thai is the default language.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{language.Thai, language.English}

var (
	matcher = language.NewMatcher(supported)
	cat     = newCatalog()
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for en, th := range thai {
		_ = b.SetString(language.English, en, en)
		_ = b.SetString(language.Thai, en, th)
	}
	return b
}

// Negotiate picks th or en from an Accept-Language header value.
func Negotiate(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.Thai
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.Thai
	}
	return supported[idx]
}

// Translate returns msg in the given language. Unknown keys come back unchanged.
func Translate(tag language.Tag, msg string) string {
	if _, ok := thai[msg]; !ok {
		return msg
	}
	return message.NewPrinter(tag, message.Catalog(cat)).Sprintf(msg)
}
