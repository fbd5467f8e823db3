// Package config resolves, parses, validates, and defaults asrclient configuration.
package config

// Config is the fully materialized runtime configuration used by asrclient.
type Config struct {
	Engine    EngineConfig
	Session   SessionConfig
	SetParams RecognitionParams
	Recognize RecognitionParams
	Shell     ShellConfig
	Log       LogConfig
	Audio     AudioConfig
	DataDir   string
	Debug     DebugConfig
}

// Engine kinds.
const (
	EngineLoopback = "loopback"
	EngineGRPC     = "grpc"
)

// EngineConfig selects and addresses the recognition engine.
type EngineConfig struct {
	Kind          string
	GRPC          string
	HTTP          string
	HealthPath    string
	Token         string
	DialTimeoutMS int
	// LatencyMS delays each loopback recognition pass.
	LatencyMS int
}

// SessionConfig controls run defaults.
type SessionConfig struct {
	DefaultProfile string
	ProfilesFile   string
}

// RecognitionParams is one MRCP parameter block: the SET-PARAMS body or the
// RECOGNIZE header set.
type RecognitionParams struct {
	ConfidenceThreshold  float64
	NBestListLength      int
	NoInputTimeoutMS     int
	RecognitionTimeoutMS int
	StartInputTimers     bool
}

// ShellConfig controls the interactive prompt.
type ShellConfig struct {
	Prompt       string
	MaxLineBytes int
}

// LogConfig uses the 0 (emergency) .. 7 (debug) priority scale and the
// 0 none, 1 console, 2 file, 3 both output modes.
type LogConfig struct {
	Priority int
	Output   int
}

// AudioConfig selects the Pulse source used by `pulse:` inputs without a device.
type AudioConfig struct {
	Input string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableGRPCDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
