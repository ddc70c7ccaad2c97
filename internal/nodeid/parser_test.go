package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectErr    bool
		expectedAddr *Address
	}{
		{
			name: "block",
			raw:  "fb",
			expectedAddr: &Address{
				Path: []Segment{NewSegment("fb")},
			},
		},
		{
			name: "port",
			raw:  "fb.color",
			expectedAddr: &Address{
				Path: []Segment{NewSegment("fb"), NewSegment("color")},
			},
		},
		{
			name: "indexed port",
			raw:  "mixer_1.data[15]",
			expectedAddr: &Address{
				Path: []Segment{NewSegment("mixer_1"), NewIndexedSegment("data", 15)},
			},
		},
		{
			name: "zero index",
			raw:  "v.attributes[0]",
			expectedAddr: &Address{
				Path: []Segment{NewSegment("v"), NewIndexedSegment("attributes", 0)},
			},
		},
		{name: "error - empty path segment", raw: "a..b", expectErr: true},
		{name: "error - invalid index", raw: "a.b[x]", expectErr: true},
		{name: "error - negative index", raw: "a.b[-1]", expectErr: true},
		{name: "error - empty string", raw: "", expectErr: true},
		{name: "error - leading hyphen", raw: "a.-b", expectErr: true},
		{name: "error - just dot", raw: ".", expectErr: true},
		{name: "error - trailing dot", raw: "a.", expectErr: true},
		{name: "error - space", raw: "a b.c", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, addr)
			assert.True(t, tc.expectedAddr.Equal(addr), "Parsed address does not match expected address")
		})
	}
}

func TestParsePortRef(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  PortRef
		expectErr bool
	}{
		{raw: "d1.data", expected: PortRef{Block: "d1", Port: "data", Index: -1}},
		{raw: "m1.data[2]", expected: PortRef{Block: "m1", Port: "data", Index: 2}},
		{raw: "d1", expectErr: true},
		{raw: "a.b.c", expectErr: true},
		{raw: "d1[0].data", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			ref, err := ParsePortRef(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ref)
			assert.Equal(t, tc.raw, ref.String())
			assert.Equal(t, tc.expected.Index != -1, ref.HasIndex())
		})
	}
}
