package airquality

import (
	"math"
	"time"
)

const (
	DischargeCoefficient = 0.6
	AirDensity           = 1.2  // kg/m³
	Gravity              = 9.81 // m/s²
	// CO2PerOccupant is the CO₂ exhaled by one sedentary adult, m³/h
	CO2PerOccupant = 0.018

	kelvinOffset = 273.15
)

// Geometry describes the room and its openings. Zero fields fall back to
// DefaultGeometry.
type Geometry struct {
	Length          float64 `json:"length"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	Occupants       int     `json:"occupants"`
	WindowCount     int     `json:"window_count"`
	WindowWidth     float64 `json:"window_width"`
	WindowHeight    float64 `json:"window_height"`
	OpeningFraction float64 `json:"opening_fraction"`
	RadiatorPower   float64 `json:"radiator_power"` // W, 0 disables convection
}

// DefaultGeometry is a 6×6×4 m classroom-sized room with one tilted window
func DefaultGeometry() Geometry {
	return Geometry{
		Length:          6,
		Width:           6,
		Height:          4,
		Occupants:       2,
		WindowCount:     1,
		WindowWidth:     1.2,
		WindowHeight:    1.5,
		OpeningFraction: 0.1,
	}
}

// WithDefaults fills unset fields from DefaultGeometry
func (g Geometry) WithDefaults() Geometry {
	d := DefaultGeometry()
	if g.Length <= 0 {
		g.Length = d.Length
	}
	if g.Width <= 0 {
		g.Width = d.Width
	}
	if g.Height <= 0 {
		g.Height = d.Height
	}
	if g.Occupants <= 0 {
		g.Occupants = d.Occupants
	}
	if g.WindowCount <= 0 {
		g.WindowCount = d.WindowCount
	}
	if g.WindowWidth <= 0 {
		g.WindowWidth = d.WindowWidth
	}
	if g.WindowHeight <= 0 {
		g.WindowHeight = d.WindowHeight
	}
	if g.OpeningFraction <= 0 || g.OpeningFraction > 1 {
		g.OpeningFraction = d.OpeningFraction
	}
	if g.RadiatorPower < 0 {
		g.RadiatorPower = 0
	}
	return g
}

// Volume in m³
func (g Geometry) Volume() float64 {
	return g.Length * g.Width * g.Height
}

// OpenArea is the effective open area of one window, m²
func (g Geometry) OpenArea() float64 {
	return g.WindowWidth * g.WindowHeight * g.OpeningFraction
}

// Outdoor holds ambient reference conditions
type Outdoor struct {
	Temperature float64 // °C
	WindSpeed   float64 // m/s
	Humidity    float64 // %RH
	CO2         float64 // ppm
}

// RecoveryKind distinguishes the possible recovery outcomes
type RecoveryKind int

const (
	// RecoveryNotNeeded means nothing is out of band
	RecoveryNotNeeded RecoveryKind = iota
	// RecoveryFinite carries a concrete duration
	RecoveryFinite
	// RecoveryUnbounded means there is no airflow to recover with
	RecoveryUnbounded
	// RecoveryUndefined means ventilation cannot pull the metric back into band
	RecoveryUndefined
)

func (k RecoveryKind) String() string {
	switch k {
	case RecoveryNotNeeded:
		return "not_needed"
	case RecoveryFinite:
		return "finite"
	case RecoveryUnbounded:
		return "unbounded"
	default:
		return "undefined"
	}
}

func (k RecoveryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Recovery is a time-to-normalize result. Duration is only meaningful for
// RecoveryFinite.
type Recovery struct {
	Kind     RecoveryKind  `json:"kind"`
	Duration time.Duration `json:"duration"`
}

// Estimate is the full ventilation model output for one reading
type Estimate struct {
	StackVelocity      float64             `json:"stack_velocity"`
	WindVelocity       float64             `json:"wind_velocity"`
	ConvectiveVelocity float64             `json:"convective_velocity"`
	EffectiveVelocity  float64             `json:"effective_velocity"`
	Volume             float64             `json:"volume"`
	Flow               float64             `json:"flow"`          // m³/h achievable
	RequiredFlow       float64             `json:"required_flow"` // m³/h to hold CO₂ at the limit, 0 if unreachable
	PerMetric          map[Metric]Recovery `json:"per_metric"`
	Recovery           Recovery            `json:"recovery"`
}

// StackVelocity is the buoyancy-driven air speed through an opening of height
// h for the given indoor/outdoor temperatures, m/s.
func StackVelocity(h, indoorC, outdoorC float64) float64 {
	tAvg := (indoorC+outdoorC)/2 + kelvinOffset
	if h <= 0 || tAvg <= 0 {
		return 0
	}
	return math.Sqrt(2 * Gravity * h * math.Abs(indoorC-outdoorC) / tAvg)
}

// ConvectiveVelocity approximates the plume speed a heat source of powerW
// watts induces in a room of the given volume, m/s.
func ConvectiveVelocity(powerW, volume float64) float64 {
	if powerW <= 0 || volume <= 0 {
		return 0
	}
	return math.Cbrt(powerW / AirDensity / volume)
}

// AchievableFlow converts an effective velocity into volumetric flow through
// all windows, m³/h.
func AchievableFlow(g Geometry, vEff float64) float64 {
	return DischargeCoefficient * g.OpenArea() * vEff * float64(g.WindowCount) * 3600
}

// RequiredFlow is the steady-state flow that holds CO₂ at co2Max for the
// given occupancy. ok is false when co2Max is not above the outdoor level.
func RequiredFlow(occupants int, co2Max, co2Outside float64) (float64, bool) {
	diff := co2Max - co2Outside
	if diff <= 0 {
		return 0, false
	}
	return float64(occupants) * CO2PerOccupant / (diff * 1e-6), true
}

// RecoveryTime solves C(t) = ref + (current-ref)·e^(−Q·t/V) for C(t) = target.
func RecoveryTime(volume, flow, current, target, ref float64) Recovery {
	if flow <= 0 || volume <= 0 {
		return Recovery{Kind: RecoveryUnbounded}
	}
	denom := current - ref
	if denom == 0 {
		return Recovery{Kind: RecoveryUndefined}
	}
	ratio := (target - ref) / denom
	if ratio <= 0 || ratio >= 1 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Recovery{Kind: RecoveryUndefined}
	}
	hours := -(volume / flow) * math.Log(ratio)
	return Recovery{Kind: RecoveryFinite, Duration: time.Duration(hours * float64(time.Hour))}
}

// Reference returns the ambient value a metric decays toward while ventilating
func (o Outdoor) Reference(m Metric) float64 {
	switch m {
	case MetricCO2:
		return o.CO2
	case MetricTemperature:
		return o.Temperature
	default:
		return o.Humidity
	}
}

// Target returns the band edge an out-of-range status must cross back over
func Target(b Band, s Status) float64 {
	if s == BelowMin {
		return b.Min
	}
	return b.Max
}

// Ventilate runs the airflow model for one reading
func Ventilate(r Reading, eval Evaluation, limits Limits, geometry Geometry, out Outdoor) Estimate {
	g := geometry.WithDefaults()

	est := Estimate{
		StackVelocity:      StackVelocity(g.WindowHeight, r.Temperature, out.Temperature),
		WindVelocity:       math.Max(out.WindSpeed, 0),
		ConvectiveVelocity: ConvectiveVelocity(g.RadiatorPower, g.Volume()),
		Volume:             g.Volume(),
		PerMetric:          make(map[Metric]Recovery),
	}
	est.EffectiveVelocity = math.Sqrt(est.StackVelocity*est.StackVelocity +
		est.WindVelocity*est.WindVelocity +
		est.ConvectiveVelocity*est.ConvectiveVelocity)
	est.Flow = AchievableFlow(g, est.EffectiveVelocity)
	if q, ok := RequiredFlow(g.Occupants, limits.CO2.Max, out.CO2); ok {
		est.RequiredFlow = q
	}

	for _, m := range eval.OutOfRange() {
		est.PerMetric[m] = RecoveryTime(est.Volume, est.Flow, r.Value(m),
			Target(limits.Band(m), eval[m]), out.Reference(m))
	}
	est.Recovery = Combine(est.PerMetric, est.Flow)
	return est
}

// Combine reduces per-metric results to the overall recovery: the shortest
// finite time, otherwise unbounded when there is no flow, otherwise undefined.
func Combine(perMetric map[Metric]Recovery, flow float64) Recovery {
	if len(perMetric) == 0 {
		return Recovery{Kind: RecoveryNotNeeded}
	}
	best := Recovery{Kind: RecoveryUndefined}
	for _, m := range Metrics {
		rec, ok := perMetric[m]
		if !ok || rec.Kind != RecoveryFinite {
			continue
		}
		if best.Kind != RecoveryFinite || rec.Duration < best.Duration {
			best = rec
		}
	}
	if best.Kind != RecoveryFinite && flow <= 0 {
		return Recovery{Kind: RecoveryUnbounded}
	}
	return best
}
