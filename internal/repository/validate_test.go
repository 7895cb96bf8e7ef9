package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmarchiori/wafertrack/internal/common"
)

func TestValidateDatasheetDefinitionAccepts(t *testing.T) {
	doc := `[
		{
			"result_name": "insertionLoss",
			"location_group": "outputs",
			"selection_method": "newest",
			"tag_filters": {"required": ["TE", "1550nm"]},
			"datasheet_ready": true,
			"value_range": {"min": 0, "max": 10, "unit": "dB"}
		},
		{
			"result_name": "phase",
			"location_group": "outputs",
			"selection_method": "rootMeasurement",
			"method_info": {
				"root_measurement": "insertionLoss",
				"root_locations_map": {"out1": "out1"},
				"backup_method": "newest"
			}
		}
	]`
	require.NoError(t, ValidateDatasheetDefinition([]byte(doc)))
}

func TestValidateDatasheetDefinitionAcceptsOpenMethodSet(t *testing.T) {
	doc := `[{"result_name": "a", "location_group": "g", "selection_method": "customPolicy"}]`
	require.NoError(t, ValidateDatasheetDefinition([]byte(doc)))
}

func TestValidateDatasheetDefinitionRejects(t *testing.T) {
	cases := map[string]string{
		"missing result_name": `[{"location_group": "g", "selection_method": "newest"}]`,
		"empty result_name":   `[{"result_name": "", "location_group": "g", "selection_method": "newest"}]`,
		"unknown field":       `[{"result_name": "a", "location_group": "g", "selection_method": "newest", "bogus": 1}]`,
		"non-array document":  `{"result_name": "a"}`,
		"range with strings":  `[{"result_name": "a", "location_group": "g", "selection_method": "newest", "value_range": {"min": "zero"}}]`,
		"rootMeasurement without method_info": `[
			{"result_name": "a", "location_group": "g", "selection_method": "rootMeasurement"}]`,
		"rootMeasurement without backup": `[
			{"result_name": "a", "location_group": "g", "selection_method": "rootMeasurement",
			 "method_info": {"root_measurement": "b"}}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, ValidateDatasheetDefinition([]byte(doc)), common.ErrMalformedDefinition)
		})
	}
}
