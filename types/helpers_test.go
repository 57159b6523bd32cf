package types

import (
	"fmt"
	"strings"
	"testing"
)

func replaceOnce(t *testing.T, s, old, new string) string {
	t.Helper()
	if !strings.Contains(s, old) {
		t.Fatalf("%q not found", old)
	}
	return strings.Replace(s, old, new, 1)
}

func hexUpper(bz []byte) string {
	return fmt.Sprintf("%X", bz)
}
