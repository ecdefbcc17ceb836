package routeplanner

import "strings"

// TriggerKind classifies an inbound event for the transition table.
type TriggerKind int

const (
	TriggerText TriggerKind = iota
	TriggerStart
	TriggerHelp
	TriggerWeather
	TriggerCancel
	TriggerAddStop
	TriggerViewRoute
	TriggerConfirm
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerStart:
		return "start"
	case TriggerHelp:
		return "help"
	case TriggerWeather:
		return "weather"
	case TriggerCancel:
		return "cancel"
	case TriggerAddStop:
		return "add_stop"
	case TriggerViewRoute:
		return "view_route"
	case TriggerConfirm:
		return "confirm"
	default:
		return "text"
	}
}

type trigger struct {
	kind  TriggerKind
	value string
}

// classifyTrigger prefers a pressed button over free text.
func classifyTrigger(ev Event) trigger {
	raw := ev.Choice
	if strings.TrimSpace(raw) == "" {
		raw = ev.Text
	}
	value := strings.TrimSpace(raw)
	key := strings.ToLower(strings.Join(strings.Fields(value), " "))
	if strings.HasPrefix(key, "/") {
		// telegram style "/cmd@botname"
		if at := strings.IndexByte(key, '@'); at > 0 {
			key = key[:at]
		}
	}

	switch key {
	case "/start":
		return trigger{kind: TriggerStart, value: value}
	case "/help":
		return trigger{kind: TriggerHelp, value: value}
	case "/weather":
		return trigger{kind: TriggerWeather, value: value}
	case "/cancel", "cancel":
		return trigger{kind: TriggerCancel, value: value}
	case ChoiceAddStop, "add stop":
		return trigger{kind: TriggerAddStop, value: value}
	case ChoiceViewRoute, "view route":
		return trigger{kind: TriggerViewRoute, value: value}
	case ChoiceConfirm, "show forecast":
		return trigger{kind: TriggerConfirm, value: value}
	}
	return trigger{kind: TriggerText, value: value}
}
