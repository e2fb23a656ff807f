package version

// Flag contains extra info about the version. It is helpul for tracking
// versions while developing. It should always be empty on the master branch.
// This is enforced by TestFlagEmpty.
const Flag = ""

// Base is the semantic version of the node.
const Base = "0.1.0"

var (
	// Version is the full version string
	Version = Base

	// GitCommit is set with --ldflags "-X github.com/mosaicnetworks/reactor/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	Version = full(Base, Flag, GitCommit)
}

func full(base, flag, commit string) string {
	v := base
	if flag != "" {
		v += "-" + flag
	}
	if len(commit) >= 8 {
		v += "-" + commit[:8]
	}
	return v
}
