package phrase

import "github.com/jwalitptl/msp-alerts/internal/model"

var builtinPhrases = catalog{
	"en": {
		KeyEmailSubject:        "[{severity}] {alert} on {agent}",
		KeyEmailGreeting:       "Hello {name},",
		KeyEmailIntro:          "An alert was raised on one of your monitored devices.",
		KeyEmailSeverity:       "Severity: {severity}",
		KeyEmailDevice:         "Device: {agent}",
		KeyEmailTriggered:      "Triggered at: {time}",
		KeyEmailFooter:         "You receive this message because you subscribed to alerts for your account.",
		KeyStaffEmailSubject:   "[{severity}] {alert} ({metric}) on {agent}",
		KeyStaffEmailHeading:   "Alert {alert} on {agent}",
		KeyStaffEmailIndicator: "Indicator payload",
		KeySMS:                 "[{severity}] {agent}: {alert}",
	},
	"fr": {
		KeyEmailSubject:   "[{severity}] {alert} sur {agent}",
		KeyEmailGreeting:  "Bonjour {name},",
		KeyEmailIntro:     "Une alerte a été déclenchée sur l'un de vos appareils surveillés.",
		KeyEmailSeverity:  "Gravité : {severity}",
		KeyEmailDevice:    "Appareil : {agent}",
		KeyEmailTriggered: "Déclenchée le : {time}",
		KeyEmailFooter:    "Vous recevez ce message car vous êtes abonné aux alertes de votre compte.",
		KeySMS:            "[{severity}] {agent} : {alert}",
	},
	"es": {
		KeyEmailSubject:   "[{severity}] {alert} en {agent}",
		KeyEmailGreeting:  "Hola {name}:",
		KeyEmailIntro:     "Se generó una alerta en uno de sus dispositivos supervisados.",
		KeyEmailSeverity:  "Gravedad: {severity}",
		KeyEmailDevice:    "Dispositivo: {agent}",
		KeyEmailTriggered: "Activada el: {time}",
		KeyEmailFooter:    "Recibe este mensaje porque está suscrito a las alertas de su cuenta.",
		KeySMS:            "[{severity}] {agent}: {alert}",
	},
}

var builtinSeverities = map[string]map[model.Severity]string{
	"en": {
		model.SeverityInfo:     "INFO",
		model.SeverityLow:      "LOW",
		model.SeverityMedium:   "MEDIUM",
		model.SeverityHigh:     "HIGH",
		model.SeverityCritical: "CRITICAL",
	},
	"fr": {
		model.SeverityInfo:     "INFO",
		model.SeverityLow:      "FAIBLE",
		model.SeverityMedium:   "MOYENNE",
		model.SeverityHigh:     "ÉLEVÉE",
		model.SeverityCritical: "CRITIQUE",
	},
	"es": {
		model.SeverityInfo:     "INFO",
		model.SeverityLow:      "BAJA",
		model.SeverityMedium:   "MEDIA",
		model.SeverityHigh:     "ALTA",
		model.SeverityCritical: "CRÍTICA",
	},
}

var builtinLayouts = map[string]string{
	"en": "Jan 2, 2006 15:04",
	"fr": "02/01/2006 15:04",
	"es": "02/01/2006 15:04",
}
