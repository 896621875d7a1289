package types

// CurrentVersion gives the current version of the speakgrinder server
// and the minimum and recommended versions of the CLI.
var CurrentVersion = Version{
	Version:                      "1.2.0",
	SpeakgrindVersionRequired:    "1.1.0",
	SpeakgrindVersionRecommended: "1.2.0",
}

// Version defines the version information of the server.
type Version struct {
	Version                      string `json:"version"`
	SpeakgrindVersionRequired    string `json:"speakgrindVersionRequired"`
	SpeakgrindVersionRecommended string `json:"speakgrindVersionRecommended"`
}
