package utils

const (
	// Bumped on every release.
	PLACE_EXPORTER_VERSION = "0.3.0"

	GIT_COMMIT_HASH = "$Format:%H$"
)

func GitCommitHash() string {
	if len(GIT_COMMIT_HASH) == 40 {
		// Substitution has happened.
		return GIT_COMMIT_HASH
	}
	return ""
}
