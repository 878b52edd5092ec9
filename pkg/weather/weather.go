// Package weather looks up current outdoor conditions for a device location
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Conditions are the current outdoor values at a location
type Conditions struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %RH
	WindSpeed   float64   `json:"wind_speed"`  // m/s
	ObservedAt  time.Time `json:"observed_at"`
}

// Provider abstracts a weather source
type Provider interface {
	Lookup(ctx context.Context, lat, lon float64) (Conditions, error)
}

// OpenMeteo queries the Open-Meteo forecast API, which needs no API key
type OpenMeteo struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenMeteo(baseURL string, timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type forecastResponse struct {
	Current struct {
		Time          string   `json:"time"`
		Temperature2m *float64 `json:"temperature_2m"`
		Humidity2m    *float64 `json:"relative_humidity_2m"`
		WindSpeed10m  *float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Lookup fetches current temperature, humidity and wind speed in m/s
func (o *OpenMeteo) Lookup(ctx context.Context, lat, lon float64) (Conditions, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m")
	q.Set("wind_speed_unit", "ms")
	q.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return Conditions{}, err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Conditions{}, fmt.Errorf("weather read failed: %w", err)
	}

	var fr forecastResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return Conditions{}, fmt.Errorf("weather decode failed (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || fr.Error {
		return Conditions{}, fmt.Errorf("weather API status %d: %s", resp.StatusCode, fr.Reason)
	}
	if fr.Current.Temperature2m == nil || fr.Current.WindSpeed10m == nil {
		return Conditions{}, fmt.Errorf("weather response missing current values")
	}

	c := Conditions{
		Temperature: *fr.Current.Temperature2m,
		WindSpeed:   *fr.Current.WindSpeed10m,
		ObservedAt:  time.Now().UTC(),
	}
	if fr.Current.Humidity2m != nil {
		c.Humidity = *fr.Current.Humidity2m
	}
	if t, err := time.Parse("2006-01-02T15:04", fr.Current.Time); err == nil {
		c.ObservedAt = t.UTC()
	}
	return c, nil
}
