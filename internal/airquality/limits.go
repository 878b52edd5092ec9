package airquality

// ThresholdProvider resolves the limits that apply to a device
type ThresholdProvider interface {
	LimitsFor(deviceUID string) Limits
}

// StaticThresholds applies the same limits to every device
type StaticThresholds struct {
	Limits Limits
}

func (s StaticThresholds) LimitsFor(string) Limits {
	return s.Limits
}

// BandOverride replaces one or both edges of a band
type BandOverride struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

func (o BandOverride) apply(b Band) Band {
	if o.Min != nil {
		b.Min = *o.Min
	}
	if o.Max != nil {
		b.Max = *o.Max
	}
	return b
}

// LimitsOverride is a partial per-device limits definition
type LimitsOverride struct {
	CO2         *BandOverride `yaml:"co2"`
	Temperature *BandOverride `yaml:"temperature"`
	Humidity    *BandOverride `yaml:"humidity"`
}

// Apply merges the override on top of base
func (o LimitsOverride) Apply(base Limits) Limits {
	if o.CO2 != nil {
		base.CO2 = o.CO2.apply(base.CO2)
	}
	if o.Temperature != nil {
		base.Temperature = o.Temperature.apply(base.Temperature)
	}
	if o.Humidity != nil {
		base.Humidity = o.Humidity.apply(base.Humidity)
	}
	return base
}

// DeviceThresholds applies defaults with optional per-device overrides
type DeviceThresholds struct {
	Defaults  Limits
	Overrides map[string]LimitsOverride
}

func (d DeviceThresholds) LimitsFor(deviceUID string) Limits {
	if o, ok := d.Overrides[deviceUID]; ok {
		return o.Apply(d.Defaults)
	}
	return d.Defaults
}
