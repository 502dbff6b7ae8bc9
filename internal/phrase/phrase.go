// Package phrase holds the built-in message catalog used by the email and
// SMS templates.
package phrase

import (
	"strings"
	"time"

	"github.com/jwalitptl/msp-alerts/internal/model"
)

// Table resolves localized phrases.
type Table interface {
	// Lookup returns the phrase for key in locale with {name} tokens replaced
	// from params. Unknown locales fall back to English, unknown keys to the key.
	Lookup(locale, key string, params map[string]string) string
	SeverityLabel(severity model.Severity, locale string) string
	FormatDateTime(ts time.Time, locale string) string
	Supports(locale string) bool
}

// Phrase keys
const (
	KeyEmailSubject        = "alert.email.subject"
	KeyEmailGreeting       = "alert.email.greeting"
	KeyEmailIntro          = "alert.email.intro"
	KeyEmailSeverity       = "alert.email.severity"
	KeyEmailDevice         = "alert.email.device"
	KeyEmailTriggered      = "alert.email.triggered"
	KeyEmailFooter         = "alert.email.footer"
	KeyStaffEmailSubject   = "alert.staff.subject"
	KeyStaffEmailHeading   = "alert.staff.heading"
	KeyStaffEmailIndicator = "alert.staff.indicator"
	KeySMS                 = "alert.sms"
)

const defaultLocale = "en"

type catalog map[string]map[string]string

type StaticTable struct {
	phrases    catalog
	severities map[string]map[model.Severity]string
	layouts    map[string]string
}

// NewStaticTable returns the built-in en/fr/es catalog.
func NewStaticTable() *StaticTable {
	return &StaticTable{
		phrases:    builtinPhrases,
		severities: builtinSeverities,
		layouts:    builtinLayouts,
	}
}

// base reduces "fr-CA" to "fr" and falls back to English for unknown locales.
func (t *StaticTable) base(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	if _, ok := t.phrases[l]; ok {
		return l
	}
	return defaultLocale
}

func (t *StaticTable) Supports(locale string) bool {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	_, ok := t.phrases[l]
	return ok
}

func (t *StaticTable) Lookup(locale, key string, params map[string]string) string {
	text, ok := t.phrases[t.base(locale)][key]
	if !ok {
		if text, ok = t.phrases[defaultLocale][key]; !ok {
			return key
		}
	}
	if len(params) == 0 {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (t *StaticTable) SeverityLabel(severity model.Severity, locale string) string {
	if label, ok := t.severities[t.base(locale)][severity]; ok {
		return label
	}
	return strings.ToUpper(string(severity))
}

func (t *StaticTable) FormatDateTime(ts time.Time, locale string) string {
	return ts.UTC().Format(t.layouts[t.base(locale)]) + " UTC"
}
