package forecast

import (
	"strings"
	"time"
)

// Condition is a categorized weather state derived from NEA forecast text.
type Condition string

const (
	ConditionUnknown      Condition = "unknown"
	ConditionFair         Condition = "fair"
	ConditionPartlyCloudy Condition = "partly_cloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionHaze         Condition = "haze"
	ConditionFog          Condition = "fog"
	ConditionWindy        Condition = "windy"
	ConditionLightRain    Condition = "light_rain"
	ConditionRain         Condition = "rain"
	ConditionHeavyRain    Condition = "heavy_rain"
	ConditionStorm        Condition = "storm"
)

// TimeOfDay represents the lighting period.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeNight TimeOfDay = "night"
)

// GetTimeOfDay returns day between 07:00 and 19:00 local time. Singapore sits
// on the equator so sunrise and sunset barely move through the year.
func GetTimeOfDay(t time.Time) TimeOfDay {
	hour := t.Hour()
	if hour >= 7 && hour < 19 {
		return TimeDay
	}
	return TimeNight
}

// ExtractCondition categorizes an NEA forecast string such as
// "Thundery Showers" or "Partly Cloudy (Night)".
func ExtractCondition(text string) Condition {
	lower := strings.ToLower(text)

	switch {
	case lower == "":
		return ConditionUnknown
	case strings.Contains(lower, "thunder"):
		return ConditionStorm
	case strings.Contains(lower, "heavy rain"), strings.Contains(lower, "heavy showers"):
		return ConditionHeavyRain
	case strings.Contains(lower, "light rain"), strings.Contains(lower, "light showers"),
		strings.Contains(lower, "passing showers"), strings.Contains(lower, "drizzle"):
		return ConditionLightRain
	case strings.Contains(lower, "rain"), strings.Contains(lower, "shower"):
		return ConditionRain
	case strings.Contains(lower, "haz"):
		return ConditionHaze
	case strings.Contains(lower, "fog"), strings.Contains(lower, "mist"):
		return ConditionFog
	case strings.Contains(lower, "windy"):
		return ConditionWindy
	case strings.Contains(lower, "partly cloudy"):
		return ConditionPartlyCloudy
	case strings.Contains(lower, "cloudy"), strings.Contains(lower, "overcast"):
		return ConditionCloudy
	case strings.Contains(lower, "fair"), strings.Contains(lower, "sunny"), strings.Contains(lower, "clear"):
		return ConditionFair
	default:
		return ConditionUnknown
	}
}

// Icon returns a single glyph for the condition, choosing moon variants at
// night.
func (c Condition) Icon(tod TimeOfDay) string {
	switch c {
	case ConditionFair:
		if tod == TimeNight {
			return "☾"
		}
		return "☀"
	case ConditionPartlyCloudy:
		if tod == TimeNight {
			return "☁"
		}
		return "⛅"
	case ConditionCloudy, ConditionHaze, ConditionFog, ConditionWindy:
		return "☁"
	case ConditionLightRain, ConditionRain, ConditionHeavyRain:
		return "☂"
	case ConditionStorm:
		return "⚡"
	default:
		return "?"
	}
}

// CSSClass returns the CSS class for styling.
func (c Condition) CSSClass() string {
	return "wx-" + strings.ReplaceAll(string(c), "_", "-")
}
