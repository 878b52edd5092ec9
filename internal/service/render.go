package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/quocanhngo/airguard/internal/airquality"
	"github.com/quocanhngo/airguard/internal/model"
)

const (
	normalHeader = "✅ Air quality OK"
	alertHeader  = "🚨 Air quality alert"
)

// StatusView is everything a status message shows
type StatusView struct {
	Device      *model.Device
	Measurement *model.Measurement
	Limits      airquality.Limits
	Evaluation  airquality.Evaluation
	Estimate    airquality.Estimate
}

// Render produces the plain-text status message for a device
func Render(v StatusView) string {
	var b strings.Builder

	if v.Evaluation.HasAlert() {
		b.WriteString(alertHeader)
	} else {
		b.WriteString(normalHeader)
	}
	b.WriteString("\n")

	if v.Device.Name != "" {
		fmt.Fprintf(&b, "📍 %s (%s)\n", v.Device.Name, v.Device.UID)
	} else {
		fmt.Fprintf(&b, "📍 %s\n", v.Device.UID)
	}
	fmt.Fprintf(&b, "🕒 %s\n\n", v.Measurement.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))

	for _, m := range airquality.Metrics {
		b.WriteString(metricLine(m, v))
		b.WriteString("\n")
	}
	if v.Measurement.Pressure != nil {
		fmt.Fprintf(&b, "Pressure: %.1f hPa\n", *v.Measurement.Pressure)
	}

	if v.Evaluation.HasAlert() {
		b.WriteString("\n")
		fmt.Fprintf(&b, "🌬 Ventilation flow: %.0f m³/h", v.Estimate.Flow)
		if v.Estimate.RequiredFlow > 0 {
			fmt.Fprintf(&b, " (needed %.0f m³/h)", v.Estimate.RequiredFlow)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "⏳ Recovery: %s\n", FormatRecovery(v.Estimate.Recovery))
	}

	return strings.TrimRight(b.String(), "\n")
}

func metricLine(m airquality.Metric, v StatusView) string {
	r := v.Measurement
	var line string
	switch m {
	case airquality.MetricCO2:
		line = fmt.Sprintf("CO₂: %d ppm", r.CO2)
	case airquality.MetricTemperature:
		line = fmt.Sprintf("Temperature: %.1f °C", r.Temperature)
	case airquality.MetricHumidity:
		line = fmt.Sprintf("Humidity: %.1f %%", r.Humidity)
	}

	band := v.Limits.Band(m)
	switch v.Evaluation[m] {
	case airquality.AboveMax:
		line += fmt.Sprintf(" ⚠️ above %s", formatBound(m, band.Max))
	case airquality.BelowMin:
		line += fmt.Sprintf(" ⚠️ below %s", formatBound(m, band.Min))
	}
	return line
}

func formatBound(m airquality.Metric, v float64) string {
	if m == airquality.MetricCO2 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// FormatRecovery renders a recovery result for humans
func FormatRecovery(r airquality.Recovery) string {
	switch r.Kind {
	case airquality.RecoveryNotNeeded:
		return "not needed"
	case airquality.RecoveryUnbounded:
		return "unbounded (no airflow)"
	case airquality.RecoveryUndefined:
		return "cannot be estimated by ventilation"
	}

	d := r.Duration.Round(time.Minute)
	switch {
	case d < time.Minute:
		return "under 1 min"
	case d < time.Hour:
		return fmt.Sprintf("~%d min", int(d.Minutes()))
	default:
		return fmt.Sprintf("~%d h %02d min", int(d.Hours()), int(d.Minutes())%60)
	}
}
