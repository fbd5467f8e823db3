package config

// DefaultProfile is used by `run` when no profile token is given.
const DefaultProfile = "uni2"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Kind:          EngineLoopback,
			GRPC:          "127.0.0.1:50061",
			HTTP:          "",
			HealthPath:    "/v1/health/ready",
			DialTimeoutMS: 3000,
		},
		Session: SessionConfig{DefaultProfile: DefaultProfile},
		SetParams: RecognitionParams{
			ConfidenceThreshold:  0.9,
			NBestListLength:      2,
			NoInputTimeoutMS:     1000,
			RecognitionTimeoutMS: 5000,
			StartInputTimers:     false,
		},
		Recognize: RecognitionParams{
			ConfidenceThreshold:  0.7,
			NBestListLength:      4,
			NoInputTimeoutMS:     2000,
			RecognitionTimeoutMS: 11000,
			StartInputTimers:     true,
		},
		Shell: ShellConfig{
			Prompt:       "asrclient-cli> ",
			MaxLineBytes: 1024,
		},
		Log:   LogConfig{Priority: 6, Output: 1},
		Audio: AudioConfig{Input: "default"},
	}
}
