package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	require.Contains(t, Version, LNSemVer)
	require.Equal(t, uint64(10), BlockProtocol.Uint64())
}
