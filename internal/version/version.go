package version

import "fmt"

// Build-time variables. Override via -ldflags.
var (
	Version   = "dev"
	Commit    = "dev"
	BuildDate = "dev"
)

// Info describes build/version metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Get returns version info, defaulting empty fields to "dev".
func Get() Info {
	return Info{
		Version:   defaultOr(Version, "dev"),
		Commit:    defaultOr(Commit, "dev"),
		BuildDate: defaultOr(BuildDate, "dev"),
	}
}

// UserAgent is the identification string sent with upstream API requests.
func UserAgent() string {
	return fmt.Sprintf("dune-analytics-mcp-server/%s", Get().Version)
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
