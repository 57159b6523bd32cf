package bytes

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMarshal(t *testing.T) {
	type TestStruct struct {
		B1 []byte
		B2 HexBytes
	}

	cases := []struct {
		input    []byte
		expected string
	}{
		{[]byte(``), `{"B1":"","B2":""}`},
		{[]byte(`a`), `{"B1":"YQ==","B2":"61"}`},
		{[]byte(`abc`), `{"B1":"YWJj","B2":"616263"}`},
		{[]byte("\x1a\x2b\x3c"), `{"B1":"Gis8","B2":"1A2B3C"}`},
	}

	for i, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("Case %d", i), func(t *testing.T) {
			ts := TestStruct{B1: tc.input, B2: tc.input}

			jsonBytes, err := json.Marshal(ts)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(jsonBytes))

			ts2 := TestStruct{}
			require.NoError(t, json.Unmarshal(jsonBytes, &ts2))
			assert.Equal(t, ts2.B1, tc.input)
			assert.Equal(t, string(ts2.B2), string(tc.input))
		})
	}
}

func TestUnmarshalTextRejectsNonHex(t *testing.T) {
	var bz HexBytes
	require.NoError(t, bz.UnmarshalText([]byte("9b24d4de")))
	assert.Equal(t, "9B24D4DE", bz.String())

	assert.Error(t, bz.UnmarshalText([]byte("zz")))
}

func TestHexBytesFormat(t *testing.T) {
	bz := HexBytes{0xde, 0xad, 0xbe, 0xef}
	assert.Equal(t, "DEADBEEF", fmt.Sprintf("%s", bz))
	assert.Equal(t, "DEADBE", bz.ShortString())
	assert.True(t, bz.Equal([]byte{0xde, 0xad, 0xbe, 0xef}))
	assert.Nil(t, HexBytes(nil).Copy())
}
