package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = LNSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

// LNSemVer is the current version of lightnode.
// It's the Semantic Version of the software.
const LNSemVer = "0.1.0"

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64,
// eg. for compatibility with header types.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

// BlockProtocol versions all block data structures and processing. It is
// the block version of the headers built for tests; verification accepts
// any version.
var BlockProtocol Protocol = 10
