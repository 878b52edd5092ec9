// Package airquality classifies indoor readings against configured limits and
// estimates how long ventilation needs to bring them back into band.
package airquality

// Metric names a tracked reading component
type Metric string

const (
	MetricCO2         Metric = "co2"
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
)

// Metrics lists tracked metrics in display order
var Metrics = []Metric{MetricCO2, MetricTemperature, MetricHumidity}

// Status is the classification of a single metric
type Status int

const (
	Normal Status = iota
	BelowMin
	AboveMax
)

func (s Status) String() string {
	switch s {
	case Normal:
		return "normal"
	case BelowMin:
		return "below_min"
	case AboveMax:
		return "above_max"
	default:
		return "unknown"
	}
}

// MarshalText lets evaluations serialize as {"co2":"above_max",...}
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Band is an inclusive acceptable range. A value equal to Min or Max is Normal.
type Band struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Classify maps a value onto the band
func (b Band) Classify(v float64) Status {
	switch {
	case v < b.Min:
		return BelowMin
	case v > b.Max:
		return AboveMax
	default:
		return Normal
	}
}

// Limits holds one band per tracked metric
type Limits struct {
	CO2         Band `yaml:"co2" json:"co2"`
	Temperature Band `yaml:"temperature" json:"temperature"`
	Humidity    Band `yaml:"humidity" json:"humidity"`
}

// DefaultLimits returns the built-in comfort bands
func DefaultLimits() Limits {
	return Limits{
		CO2:         Band{Min: 400, Max: 1000},
		Temperature: Band{Min: 18, Max: 26},
		Humidity:    Band{Min: 30, Max: 60},
	}
}

// Band returns the band configured for a metric
func (l Limits) Band(m Metric) Band {
	switch m {
	case MetricCO2:
		return l.CO2
	case MetricTemperature:
		return l.Temperature
	default:
		return l.Humidity
	}
}

// Reading is one sample of the tracked metrics
type Reading struct {
	CO2         int
	Temperature float64
	Humidity    float64
}

// Value returns the reading's value for a metric
func (r Reading) Value(m Metric) float64 {
	switch m {
	case MetricCO2:
		return float64(r.CO2)
	case MetricTemperature:
		return r.Temperature
	default:
		return r.Humidity
	}
}

// Evaluation carries one status per tracked metric
type Evaluation map[Metric]Status

// Evaluate classifies every tracked metric of r against l
func Evaluate(r Reading, l Limits) Evaluation {
	eval := make(Evaluation, len(Metrics))
	for _, m := range Metrics {
		eval[m] = l.Band(m).Classify(r.Value(m))
	}
	return eval
}

// HasAlert is true iff any metric is out of its band
func (e Evaluation) HasAlert() bool {
	for _, s := range e {
		if s != Normal {
			return true
		}
	}
	return false
}

// OutOfRange lists metrics that are not Normal, in display order
func (e Evaluation) OutOfRange() []Metric {
	var out []Metric
	for _, m := range Metrics {
		if e[m] != Normal {
			out = append(out, m)
		}
	}
	return out
}
