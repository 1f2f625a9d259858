package i18n

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the visitor's language preference.
	LangCookieName = "kanal_lang"
)

// supported lists the portal's languages, default first.
var supported = []language.Tag{language.Indonesian, language.English}

var matcher = language.NewMatcher(supported)

// Default returns the language used when the visitor expresses no preference.
func Default() language.Tag {
	return supported[0]
}

// Printer returns a message printer for tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// T translates a message key into tag's language. Unknown keys are
// returned unchanged.
func T(tag language.Tag, key string) string {
	return Printer(tag).Sprintf(message.Key(key, key))
}

// ResolveTag picks the language for a request: the lang query parameter,
// then the lang cookie, then Accept-Language. The bool reports whether the
// query parameter chose it and should be persisted with SetLanguageCookie.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}

	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, ok := parse(v); ok {
			return tag, true
		}
	}

	if c, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := parse(c.Value); ok {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			tag, _, conf := matcher.Match(tags...)
			if conf != language.No {
				return base(tag), false
			}
		}
	}

	return Default(), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

func parse(v string) (language.Tag, bool) {
	tag, err := language.Parse(v)
	if err != nil {
		return language.Und, false
	}
	matched, _, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Und, false
	}
	return base(matched), true
}

// base strips the "-u-rg-..." extension Match adds, so the tag compares
// equal to one of the supported tags.
func base(tag language.Tag) language.Tag {
	b, _ := tag.Base()
	for _, s := range supported {
		if sb, _ := s.Base(); sb == b {
			return s
		}
	}
	return Default()
}
