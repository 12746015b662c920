package build

// Set at link time, e.g.
//
//	go build -ldflags "-X github.com/rohmanhakim/deck-voice/internal/build.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

const Name = "deck-voice"

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// UserAgent is the default User-Agent sent to the speech service.
func UserAgent() string {
	return Name + "/" + Version
}
