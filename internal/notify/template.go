package notify

import (
	"strings"

	"github.com/statuspulse/statuspulse/internal/config"
)

// Template is a declarative message template with {{placeholder}}
// substitution. Rendering is pure: unknown placeholders are left verbatim
// and known-but-empty values render as empty strings.
type Template struct {
	Title string
	Body  string
}

// Rendered is the channel-agnostic payload handed to a dispatcher.
type Rendered struct {
	Title string
	Body  string
	Event Event
}

// defaultTransitionTemplates are used for internal status transitions when
// the channel configures no override.
var defaultTransitionTemplates = map[string]Template{
	"discord": {
		Title: "{{emoji}} {{serviceName}} is {{eventType}}",
		Body:  "**Service:** {{serviceName}} (`{{serviceId}}`)\n**Status:** {{eventType}}\n**Last seen:** {{lastSeen}}\n**Time:** {{timestamp}}",
	},
	"slack": {
		Title: "{{emoji}} {{serviceName}} is {{eventType}}",
		Body:  "*Service:* {{serviceName}} (`{{serviceId}}`)\n*Status:* {{eventType}}\n*Last seen:* {{lastSeen}}\n*Time:* {{timestamp}}",
	},
	"telegram": {
		Title: "{{emoji}} *{{serviceName}}* is *{{eventType}}*",
		Body:  "Service: {{serviceName}} ({{serviceId}})\nStatus: {{eventType}}\nLast seen: {{lastSeen}}\nTime: {{timestamp}}",
	},
	"email": {
		Title: "[{{eventType}}] {{serviceName}}",
		Body:  "Service {{serviceName}} ({{serviceId}}) is {{eventType}}.\n\nLast seen: {{lastSeen}}\nTime: {{timestamp}}",
	},
	"webhook": {
		Title: "{{serviceName}} is {{eventType}}",
		Body:  "Service {{serviceId}} transitioned to {{eventType}} at {{timestampISO}}",
	},
	"pushover": {
		Title: "{{emoji}} {{serviceName}} is {{eventType}}",
		Body:  "Last seen: {{lastSeen}}\nTime: {{timestamp}}",
	},
	"pagerduty": {
		Title: "{{serviceName}} is {{eventType}}",
		Body:  "Service {{serviceId}} transitioned to {{eventType}}. Last seen {{lastSeen}}.",
	},
}

// defaultExternalTemplate renders externally ingested alerts for every
// channel type.
var defaultExternalTemplate = Template{
	Title: "{{emoji}} {{title}}",
	Body:  "{{message}}\n\nSeverity: {{severity}}\nSource: {{source}}\nTime: {{timestamp}}",
}

// templateFor picks the channel's configured template, falling back to the
// type default. Overrides replace fields individually.
func templateFor(ch config.Channel, ev Event) Template {
	var tpl Template
	if ev.External {
		tpl = defaultExternalTemplate
	} else {
		var ok bool
		tpl, ok = defaultTransitionTemplates[ch.Type]
		if !ok {
			tpl = defaultTransitionTemplates["webhook"]
		}
	}
	if ch.Template.Title != "" {
		tpl.Title = ch.Template.Title
	}
	if ch.Template.Body != "" {
		tpl.Body = ch.Template.Body
	}
	return tpl
}

// Render substitutes the event context into tpl.
func Render(tpl Template, ev Event) Rendered {
	values := templateValues(ev)
	return Rendered{
		Title: RenderString(tpl.Title, values),
		Body:  RenderString(tpl.Body, values),
		Event: ev,
	}
}

// RenderString replaces {{name}} placeholders in s with values[name].
// Names absent from values are left verbatim, including the braces.
func RenderString(s string, values map[string]string) string {
	var b strings.Builder
	for {
		open := strings.Index(s, "{{")
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[open:], "}}")
		if end < 0 {
			b.WriteString(s)
			break
		}
		end += open

		b.WriteString(s[:open])
		name := strings.TrimSpace(s[open+2 : end])
		if value, ok := values[name]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(s[open : end+2])
		}
		s = s[end+2:]
	}
	return b.String()
}
