package ir

// Version constants for the calendar IR and engine.
const (
	// IRVersion is the calendar IR schema version.
	IRVersion = "1"

	// EngineVersion is the worldcal engine version.
	EngineVersion = "0.3.0"
)
