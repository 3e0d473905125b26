package airquality

// Band is the NEA one-hour PM2.5 descriptor.
type Band string

const (
	BandGood          Band = "Good"
	BandModerate      Band = "Moderate"
	BandUnhealthy     Band = "Unhealthy"
	BandVeryUnhealthy Band = "Very Unhealthy"
	BandHazardous     Band = "Hazardous"
)

// BandFor classifies a one-hour PM2.5 concentration in µg/m³.
func BandFor(pm25 int) Band {
	switch {
	case pm25 <= 55:
		return BandGood
	case pm25 <= 150:
		return BandModerate
	case pm25 <= 250:
		return BandUnhealthy
	case pm25 <= 350:
		return BandVeryUnhealthy
	default:
		return BandHazardous
	}
}

// CSSClass returns the CSS class for styling. Anything past moderate shares
// one class since the e-ink display only has three shades to work with.
func (b Band) CSSClass() string {
	switch b {
	case BandGood:
		return "aqi-good"
	case BandModerate:
		return "aqi-moderate"
	default:
		return "aqi-unhealthy"
	}
}
