package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sp4m-08/crop-chat-agent/providers/farm"
)

var (
	bulletPrefix = regexp.MustCompile(`^[*\-•]+\s*`)
	emphasisMark = regexp.MustCompile(`\*+`)
	actionTail   = regexp.MustCompile(`(?is)action:.*`)
)

// FormatMarketPrice renders a market quote as one prompt-ready line from
// its first record.
func FormatMarketPrice(quote *farm.MarketQuote) string {
	if quote == nil || len(quote.Data) == 0 {
		return "Market price data not available."
	}

	record := quote.Data[0]
	return fmt.Sprintf("%s at %s mandi on %s: min %s, max %s, modal %s (INR/quintal).",
		record.Commodity, record.Market, record.Date,
		record.MinPrice, record.MaxPrice, record.ModalPrice)
}

// FormatWeather renders a weather report as prompt-ready text, degrading
// per missing field.
func FormatWeather(report *farm.WeatherReport) string {
	if report == nil {
		return "Weather data not available."
	}

	location := report.Location
	if location == "" {
		location = "Unknown"
	}

	lines := []string{
		fmt.Sprintf("Current conditions in %s: %.1f°C, %d%% humidity, %.1fmm rain.",
			location, report.Now.TempC, report.Now.Humidity, report.Now.RainMM),
	}
	if report.Forecast48h != "" {
		lines = append(lines, "Forecast: "+report.Forecast48h)
	}
	return strings.Join(lines, " ")
}

// CleanResponse strips presentational markup from generated text: leading
// bullet markers and asterisk emphasis go, "Action:" lines are dropped,
// the rest is joined into a single paragraph, and any trailing inline
// "Action:" sentence is removed.
func CleanResponse(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = bulletPrefix.ReplaceAllString(line, "")
		line = emphasisMark.ReplaceAllString(line, "")
		if strings.HasPrefix(strings.ToLower(line), "action:") {
			continue
		}
		lines = append(lines, line)
	}

	cleaned := strings.Join(lines, " ")
	cleaned = actionTail.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
