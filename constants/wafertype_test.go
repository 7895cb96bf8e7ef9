package constants

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaferTypeOf(t *testing.T) {
	cases := []struct {
		lotID string
		want  WaferType
	}{
		{"3CA0000", WaferCA},
		{"1BI0042", WaferBI},
		{"2CDM001", WaferCDM},
		{"4CB0007", WaferCB},
		{"1CM0001", WaferCM},
		{"1CO0001", WaferCO},
		{"9DR0123", WaferDR},
		{"1DT0001", WaferDT},
		{"1DY0001", WaferDY},
		{"1EI0001", WaferEI},
	}
	for _, tc := range cases {
		t.Run(tc.lotID, func(t *testing.T) {
			require.Equal(t, tc.want, WaferTypeOf(tc.lotID))
		})
	}
}

func TestWaferTypeOfUnrecognized(t *testing.T) {
	for _, lotID := range []string{"", "3C", "3", "300000", "3C0000"} {
		require.Equal(t, WaferType(""), WaferTypeOf(lotID), "lot %q", lotID)
	}
}

func TestSelectionMethodStrings(t *testing.T) {
	names := SelectionMethodStrings()
	require.Contains(t, names, "newest")
	require.Contains(t, names, "bestValue")
	require.Contains(t, names, "rootMeasurement")
	require.Len(t, names, 6)
}
