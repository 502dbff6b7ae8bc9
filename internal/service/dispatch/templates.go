package dispatch

import (
	"bytes"
	"encoding/json"
	"html/template"
	"strings"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/phrase"
)

var staffEmailHTML = template.Must(template.New("staff").Parse(`<h2>{{.Heading}}</h2>
<table>
<tr><td>{{.SeverityLine}}</td></tr>
<tr><td>{{.DeviceLine}}</td></tr>
<tr><td>Alert type: {{.AlertType}} / Metric: {{.MetricType}}</td></tr>
<tr><td>{{.TriggeredLine}}</td></tr>
<tr><td>Occurrence: {{.OccurrenceID}}</td></tr>
</table>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<h3>{{.IndicatorLabel}}</h3>
<pre>{{.Indicator}}</pre>
`))

var clientEmailHTML = template.Must(template.New("client").Parse(`<p>{{.Greeting}}</p>
<p>{{.Intro}}</p>
<h2>{{.Name}}</h2>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<ul>
<li>{{.SeverityLine}}</li>
<li>{{.DeviceLine}}</li>
<li>{{.TriggeredLine}}</li>
</ul>
<p><small>{{.Footer}}</small></p>
`))

type renderer struct {
	phrases phrase.Table
}

func agentLabel(occ *model.AlertOccurrence) string {
	if occ.AgentName != "" {
		return occ.AgentName
	}
	return occ.AgentID.String()
}

func (r renderer) params(occ *model.AlertOccurrence, locale string) map[string]string {
	return map[string]string{
		"severity": r.phrases.SeverityLabel(occ.Severity, locale),
		"agent":    agentLabel(occ),
		"alert":    occ.DisplayName(locale),
		"metric":   occ.MetricType,
		"time":     r.phrases.FormatDateTime(occ.TriggeredAt, locale),
	}
}

// staffEmail renders the fixed-locale technical template, indicator payload included.
func (r renderer) staffEmail(occ *model.AlertOccurrence, locale string) (subject, html, text string, err error) {
	p := r.params(occ, locale)
	indicator := "{}"
	if len(occ.Indicator) > 0 {
		raw, err := json.MarshalIndent(occ.Indicator, "", "  ")
		if err != nil {
			return "", "", "", err
		}
		indicator = string(raw)
	}

	data := map[string]string{
		"Heading":        r.phrases.Lookup(locale, phrase.KeyStaffEmailHeading, p),
		"SeverityLine":   r.phrases.Lookup(locale, phrase.KeyEmailSeverity, p),
		"DeviceLine":     r.phrases.Lookup(locale, phrase.KeyEmailDevice, p),
		"TriggeredLine":  r.phrases.Lookup(locale, phrase.KeyEmailTriggered, p),
		"AlertType":      occ.AlertType,
		"MetricType":     occ.MetricType,
		"OccurrenceID":   occ.ID.String(),
		"Description":    occ.DisplayDescription(locale),
		"IndicatorLabel": r.phrases.Lookup(locale, phrase.KeyStaffEmailIndicator, p),
		"Indicator":      indicator,
	}

	var buf bytes.Buffer
	if err := staffEmailHTML.Execute(&buf, data); err != nil {
		return "", "", "", err
	}

	text = strings.Join([]string{
		data["Heading"],
		data["SeverityLine"],
		data["DeviceLine"],
		"Alert type: " + occ.AlertType + " / Metric: " + occ.MetricType,
		data["TriggeredLine"],
		"Occurrence: " + data["OccurrenceID"],
		"",
		data["IndicatorLabel"] + ":",
		indicator,
	}, "\n")

	return r.phrases.Lookup(locale, phrase.KeyStaffEmailSubject, p), buf.String(), text, nil
}

// clientEmail renders the localized client template.
func (r renderer) clientEmail(occ *model.AlertOccurrence, contactName, locale string) (subject, html, text string, err error) {
	p := r.params(occ, locale)
	p["name"] = contactName

	data := map[string]string{
		"Greeting":      r.phrases.Lookup(locale, phrase.KeyEmailGreeting, p),
		"Intro":         r.phrases.Lookup(locale, phrase.KeyEmailIntro, p),
		"Name":          p["alert"],
		"Description":   occ.DisplayDescription(locale),
		"SeverityLine":  r.phrases.Lookup(locale, phrase.KeyEmailSeverity, p),
		"DeviceLine":    r.phrases.Lookup(locale, phrase.KeyEmailDevice, p),
		"TriggeredLine": r.phrases.Lookup(locale, phrase.KeyEmailTriggered, p),
		"Footer":        r.phrases.Lookup(locale, phrase.KeyEmailFooter, p),
	}

	var buf bytes.Buffer
	if err := clientEmailHTML.Execute(&buf, data); err != nil {
		return "", "", "", err
	}

	lines := []string{data["Greeting"], "", data["Intro"], "", data["Name"]}
	if data["Description"] != "" {
		lines = append(lines, data["Description"])
	}
	lines = append(lines, "", data["SeverityLine"], data["DeviceLine"], data["TriggeredLine"], "", data["Footer"])

	return r.phrases.Lookup(locale, phrase.KeyEmailSubject, p), buf.String(), strings.Join(lines, "\n"), nil
}

func (r renderer) sms(occ *model.AlertOccurrence, locale string) string {
	return r.phrases.Lookup(locale, phrase.KeySMS, r.params(occ, locale))
}
