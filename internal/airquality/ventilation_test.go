package airquality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackVelocity(t *testing.T) {
	// sqrt(2·9.81·1.5·25 / 280.65)
	v := StackVelocity(1.5, 20, -5)
	assert.InDelta(t, 1.619, v, 0.001)

	assert.Zero(t, StackVelocity(1.5, 20, 20))
	assert.Zero(t, StackVelocity(0, 20, -5))
}

func TestConvectiveVelocity(t *testing.T) {
	assert.Zero(t, ConvectiveVelocity(0, 144))
	assert.InDelta(t, math.Cbrt(1000/1.2/144), ConvectiveVelocity(1000, 144), 1e-9)
}

func TestRequiredFlow(t *testing.T) {
	q, ok := RequiredFlow(2, 1000, 400)
	require.True(t, ok)
	assert.InDelta(t, 60, q, 1e-9)

	_, ok = RequiredFlow(2, 400, 400)
	assert.False(t, ok)
}

func TestRecoveryTime_CO2AboveMax(t *testing.T) {
	rec := RecoveryTime(144, 200, 1400, 1000, 400)

	require.Equal(t, RecoveryFinite, rec.Kind)
	expected := -(144.0 / 200.0) * math.Log(600.0/1000.0)
	assert.InDelta(t, expected, rec.Duration.Hours(), 1e-6)
	assert.Positive(t, rec.Duration)
}

func TestRecoveryTime_ZeroFlowIsUnbounded(t *testing.T) {
	assert.Equal(t, RecoveryUnbounded, RecoveryTime(144, 0, 1400, 1000, 400).Kind)
	assert.Equal(t, RecoveryUnbounded, RecoveryTime(144, -1, 1400, 1000, 400).Kind)
}

func TestRecoveryTime_WrongSideOfReferenceIsUndefined(t *testing.T) {
	// Outdoor air is dirtier than the limit, ventilation cannot help.
	assert.Equal(t, RecoveryUndefined, RecoveryTime(144, 200, 1400, 1000, 1200).Kind)
	// Too cold inside and even colder outside.
	assert.Equal(t, RecoveryUndefined, RecoveryTime(144, 200, 16, 18, -5).Kind)
	// Current equals reference.
	assert.Equal(t, RecoveryUndefined, RecoveryTime(144, 200, 400, 1000, 400).Kind)
}

func TestVentilate_ScenarioWithFixedFlow(t *testing.T) {
	limits := DefaultLimits()
	out := Outdoor{Temperature: -5, WindSpeed: 0, Humidity: 50, CO2: 400}

	alert := Reading{CO2: 1400, Temperature: 20, Humidity: 45}
	eval := Evaluate(alert, limits)
	perMetric := map[Metric]Recovery{}
	for _, m := range eval.OutOfRange() {
		perMetric[m] = RecoveryTime(144, 200, alert.Value(m), Target(limits.Band(m), eval[m]), out.Reference(m))
	}
	rec := Combine(perMetric, 200)
	require.Equal(t, RecoveryFinite, rec.Kind)
	assert.Positive(t, rec.Duration)
	assert.Less(t, rec.Duration, time.Hour)

	normal := Reading{CO2: 900, Temperature: 20, Humidity: 45}
	eval = Evaluate(normal, limits)
	assert.Empty(t, eval.OutOfRange())
	assert.Equal(t, RecoveryNotNeeded, Combine(map[Metric]Recovery{}, 200).Kind)
}

func TestVentilate_DefaultGeometry(t *testing.T) {
	limits := DefaultLimits()
	out := Outdoor{Temperature: -5, WindSpeed: 0, Humidity: 50, CO2: 400}
	r := Reading{CO2: 1400, Temperature: 20, Humidity: 45}

	est := Ventilate(r, Evaluate(r, limits), limits, Geometry{}, out)

	assert.InDelta(t, 144, est.Volume, 1e-9)
	assert.InDelta(t, est.StackVelocity, est.EffectiveVelocity, 1e-9)
	assert.Positive(t, est.Flow)
	assert.InDelta(t, 60, est.RequiredFlow, 1e-9)
	require.Contains(t, est.PerMetric, MetricCO2)
	assert.Equal(t, RecoveryFinite, est.Recovery.Kind)
	assert.Equal(t, est.PerMetric[MetricCO2], est.Recovery)

	inBand := Reading{CO2: 900, Temperature: 20, Humidity: 45}
	est = Ventilate(inBand, Evaluate(inBand, limits), limits, Geometry{}, out)
	assert.Equal(t, RecoveryNotNeeded, est.Recovery.Kind)
	assert.Empty(t, est.PerMetric)
}

func TestVentilate_NoAirflowIsUnbounded(t *testing.T) {
	limits := DefaultLimits()
	// Equal temperatures, no wind, no radiator: nothing drives air through the window.
	out := Outdoor{Temperature: 20, WindSpeed: 0, Humidity: 50, CO2: 400}
	r := Reading{CO2: 1400, Temperature: 20, Humidity: 45}

	est := Ventilate(r, Evaluate(r, limits), limits, Geometry{}, out)

	assert.Zero(t, est.Flow)
	assert.Equal(t, RecoveryUnbounded, est.Recovery.Kind)
}

func TestVentilate_WindAndRadiatorAddOrthogonally(t *testing.T) {
	limits := DefaultLimits()
	out := Outdoor{Temperature: 20, WindSpeed: 3, Humidity: 50, CO2: 400}
	r := Reading{CO2: 1400, Temperature: 20, Humidity: 45}
	g := Geometry{RadiatorPower: 1000}

	est := Ventilate(r, Evaluate(r, limits), limits, g, out)

	conv := ConvectiveVelocity(1000, 144)
	assert.InDelta(t, math.Sqrt(9+conv*conv), est.EffectiveVelocity, 1e-9)
}

func TestCombine_PicksShortestFinite(t *testing.T) {
	rec := Combine(map[Metric]Recovery{
		MetricCO2:         {Kind: RecoveryFinite, Duration: 20 * time.Minute},
		MetricTemperature: {Kind: RecoveryUndefined},
		MetricHumidity:    {Kind: RecoveryFinite, Duration: 5 * time.Minute},
	}, 100)

	assert.Equal(t, Recovery{Kind: RecoveryFinite, Duration: 5 * time.Minute}, rec)
}

func TestCombine_AllUndefined(t *testing.T) {
	rec := Combine(map[Metric]Recovery{MetricTemperature: {Kind: RecoveryUndefined}}, 100)
	assert.Equal(t, RecoveryUndefined, rec.Kind)
}
