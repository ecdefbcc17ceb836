package routeplanner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
)

const (
	textStart = "Hi! Welcome to the route weather bot.\n\n" +
		"I will help you prepare for the weather on your trips: you get a forecast for several days ahead for every stop of your route.\n\n" +
		"To begin, send /weather."
	textHelp = "Commands:\n\n" +
		"/start - start the bot and show the welcome message\n" +
		"/help - show this list\n" +
		"/weather - get a forecast for a route\n" +
		"/cancel - stop building the current forecast"
	textCancel           = "Done! To get a forecast again send /weather"
	textAskDays          = "Let's start! How many days ahead do you want to see?"
	textAskDeparture     = "Now let's build the route. Enter the starting city"
	textAskDestination   = "Great! Now enter the final destination"
	textAskExtraStop     = "Enter an intermediate city"
	textExtraStopAdded   = "City added!"
	textConfirm          = "Almost done! Do you want to add intermediate stops or look at the whole route?"
	textRouteHeading     = "Current route:"
	textForecastHeading  = "Here is the forecast for your route"
	textFinished         = "Come back any time!"
	textWrongInput       = "I didn't understand you :("
	textIdleHint         = "Send /weather to plan a route."
	textServiceError     = "Couldn't get the weather data :( Try again later"
	textTimeoutError     = "The weather service took too long to answer :( Try again"
	textCityNotFound     = "City not found :( Check the spelling and try again"
	textDuplicateStop    = "This city is already in the route"
	textInvalidDayCount  = "Please choose a whole number of days from 1 to 5"
	textInvalidCityInput = "Please send the city name as text"
	textFavorable        = "good time for a walk"
	textUnfavorable      = "not the best choice for a walk"
)

// Choice values sent back by the transport when a button is pressed.
const (
	ChoiceAddStop   = "new_point"
	ChoiceViewRoute = "view_route"
	ChoiceConfirm   = "confirm"
)

func dayCountChoices() []Choice {
	out := make([]Choice, 0, forecast.MaxDays)
	for d := forecast.MinDays; d <= forecast.MaxDays; d++ {
		v := strconv.Itoa(d)
		out = append(out, Choice{Label: v, Value: v})
	}
	return out
}

func confirmChoices() []Choice {
	return []Choice{
		{Label: "Add stop", Value: ChoiceAddStop},
		{Label: "View route", Value: ChoiceViewRoute},
		{Label: "Show forecast", Value: ChoiceConfirm},
	}
}

// stagePrompt is the directive that asks for the input the stage expects.
func stagePrompt(stage Stage) Directive {
	switch stage {
	case StageAwaitingDayCount:
		return Directive{Text: textAskDays, Choices: dayCountChoices()}
	case StageAwaitingDeparture:
		return Directive{Text: textAskDeparture}
	case StageAwaitingDestination:
		return Directive{Text: textAskDestination}
	case StageAwaitingExtraStop:
		return Directive{Text: textAskExtraStop}
	case StageAwaitingConfirmation:
		return Directive{Text: textConfirm, Choices: confirmChoices()}
	default:
		return Directive{Text: textIdleHint}
	}
}

func withLead(lead string, d Directive) Directive {
	d.Text = lead + "\n\n" + d.Text
	return d
}

func renderRoute(cities []string) string {
	var b strings.Builder
	b.WriteString(textRouteHeading)
	b.WriteString("\n")
	for i, city := range cities {
		fmt.Fprintf(&b, "\n%d. %s", i+1, city)
	}
	return b.String()
}

func renderItinerary(it Itinerary) string {
	var b strings.Builder
	b.WriteString(textForecastHeading)
	for i, stop := range it.Stops {
		fmt.Fprintf(&b, "\n\n%d. %s", i+1, stop.City)
		for _, day := range stop.Forecast {
			b.WriteString("\n")
			b.WriteString(renderDay(day))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(textFinished)
	return b.String()
}

func renderDay(d forecast.DaySummary) string {
	verdict := textUnfavorable
	if d.Favorable() {
		verdict = textFavorable
	}
	return fmt.Sprintf("    %s:\n        Temperature: %.1f°C\n        Wind: %.1f m/s\n        Precipitation: %d%%\n        Humidity: %d%%\n        Verdict: %s",
		d.Date, d.TemperatureC, d.WindSpeed, int(math.Round(d.PrecipitationProbability*100)), d.HumidityPct, verdict)
}
