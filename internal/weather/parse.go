package weather

import (
	"encoding/json"
	"math"

	"github.com/kjstillabower/tourism-orchestrator/internal/client"
	"github.com/kjstillabower/tourism-orchestrator/internal/models"
)

// MaxForecastDays caps the daily forecast.
const MaxForecastDays = 7

// BuildSnapshot derives a snapshot from a forecast response. Every field degrades to
// absent independently; it never fails.
func BuildSnapshot(resp client.ForecastResponse) models.WeatherSnapshot {
	var snap models.WeatherSnapshot
	snap.Temperature = number(resp.Current["temperature"])
	if code := number(resp.Current["weathercode"]); code != nil {
		snap.Summary = summary(*code)
	}
	if current := str(resp.Current["time"]); current != nil {
		snap.PrecipitationProbability = AlignPrecipitation(*current,
			array(resp.Hourly["time"]), array(resp.Hourly["precipitation_probability"]))
	}
	snap.Forecast = Forecast(resp.Daily)
	return snap
}

// AlignPrecipitation returns the probability at the hourly index whose timestamp equals
// current exactly, or nil when there is no exact match or no usable value there.
func AlignPrecipitation(current string, hourlyTimes, probabilities []json.RawMessage) *int {
	for i, raw := range hourlyTimes {
		t := str(raw)
		if t == nil || *t != current {
			continue
		}
		if i >= len(probabilities) {
			return nil
		}
		return percent(probabilities[i])
	}
	return nil
}

// Forecast extracts up to MaxForecastDays entries positionally from the daily section.
// Arrays shorter than the date array leave the missing fields absent.
func Forecast(daily map[string]json.RawMessage) []models.DailyForecast {
	dates := array(daily["time"])
	if len(dates) == 0 {
		return nil
	}
	maxes := array(daily["temperature_2m_max"])
	mins := array(daily["temperature_2m_min"])
	precips := array(daily["precipitation_probability_max"])
	codes := array(daily["weathercode"])

	n := min(MaxForecastDays, len(dates))
	out := make([]models.DailyForecast, 0, n)
	for i := 0; i < n; i++ {
		day := models.DailyForecast{
			TempMax:                  number(at(maxes, i)),
			TempMin:                  number(at(mins, i)),
			PrecipitationProbability: percent(at(precips, i)),
		}
		if d := str(dates[i]); d != nil {
			day.Date = *d
		}
		if code := number(at(codes, i)); code != nil {
			day.Summary = summary(*code)
		}
		out = append(out, day)
	}
	return out
}

func summary(code float64) string {
	if code != math.Trunc(code) {
		return ""
	}
	label, _ := CodeLabel(int(code))
	return label
}

func at(values []json.RawMessage, i int) json.RawMessage {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func array(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// number decodes a JSON number; null, absent or non-numeric values yield nil.
func number(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

// percent decodes a probability; values outside 0-100 are treated as absent.
func percent(raw json.RawMessage) *int {
	f := number(raw)
	if f == nil || *f < 0 || *f > 100 {
		return nil
	}
	return models.Int(int(*f))
}

func str(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}
