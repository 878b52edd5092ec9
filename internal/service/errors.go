package service

import "errors"

var (
	// ErrAuthentication means the device is known and the credential does not match
	ErrAuthentication = errors.New("device authentication failed")
	// ErrValidation means the reading is malformed and was discarded
	ErrValidation = errors.New("invalid reading")
	// ErrChannelTransport means the messaging call failed outright; the live
	// message reference was left unchanged
	ErrChannelTransport = errors.New("messaging channel unavailable")
	// ErrWeatherUnavailable is logged, never returned to callers
	ErrWeatherUnavailable = errors.New("weather unavailable")
	// ErrStoreUnavailable means the registry or measurement store failed
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceExists     = errors.New("device already registered")
	ErrNoMeasurement    = errors.New("device has no measurements")
	ErrInvalidLogin     = errors.New("invalid username or password")
	ErrExportDisabled   = errors.New("export storage not configured")
)
