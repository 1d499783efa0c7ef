package main

// Control channel defaults
const (
	socketName             = "sacand"
	defaultReadTimeoutMS   = 5000 // a silent client cannot stall the loop longer than this
	defaultMaxPayloadBytes = 4096
)

// Mixer defaults (the control the original one-shot tool read)
const (
	defaultMixerDevice  = "default"
	defaultMixerControl = "Master"
	defaultMixerIndex   = 0
)

// Notification defaults
const (
	defaultAppName          = "sacand"
	defaultSummary          = "Volume"
	defaultIcon             = "audio-volume-medium"
	defaultNotifyTimeoutMS  = -1 // server decides
	defaultNotifyCallTimeMS = 2000
)

// Status feed defaults
const (
	defaultStatusPath = "/ws/status"
)
