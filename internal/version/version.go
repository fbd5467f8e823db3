package version

import "runtime"

// Name is the binary name reported by String and UserAgent.
const Name = "asrclient"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return Name + " " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent identifies the client to remote engines.
func UserAgent() string {
	return Name + "/" + Version
}
