package override

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
)

func extractedFixture() (schema.FieldSchema, schema.FieldPositions) {
	s := schema.FieldSchema{Fields: []schema.FieldDefinition{
		{ID: "full_name", Label: "Full Name", Kind: schema.KindText, Required: true},
		{ID: "dob", Label: "Date of Birth", Kind: schema.KindDate, Required: true},
	}}
	p := schema.FieldPositions{
		"full_name": {FieldID: "full_name", Page: 0, Point: schema.Coordinate{X: 0.2, Y: 0.1}},
		"dob":       {FieldID: "dob", Page: 0, Point: schema.Coordinate{X: 0.2, Y: 0.2}},
	}
	return s, p
}

func TestMergeNilRecordPassesThrough(t *testing.T) {
	s, p := extractedFixture()

	merged, mergedPos, values := Merge(s, p, nil)

	assert.Equal(t, s.Fields, merged.Fields)
	assert.Equal(t, p, mergedPos)
	assert.Nil(t, values)
}

func TestMergeOverrideWinsPerField(t *testing.T) {
	s, p := extractedFixture()
	rec := &Record{
		Schema: &schema.FieldSchema{
			Title: "Corrected Form",
			Fields: []schema.FieldDefinition{
				{ID: "full_name", Label: "Legal Name", Kind: schema.KindText, Required: true},
			},
		},
		Positions: map[string]schema.FieldPosition{
			"full_name": {Page: 1, Point: schema.Coordinate{X: 0.5, Y: 0.5}},
		},
	}

	merged, mergedPos, _ := Merge(s, p, rec)

	require.Len(t, merged.Fields, 2)
	assert.Equal(t, "Legal Name", merged.Fields[0].Label, "override field replaces extracted in place")
	assert.Equal(t, "Corrected Form", merged.Title)

	pos := mergedPos["full_name"]
	assert.Equal(t, 1, pos.Page)
	assert.Equal(t, "full_name", pos.FieldID, "merged position carries its id")
	assert.Equal(t, 0.2, mergedPos["dob"].Point.X, "untouched positions survive")
}

func TestMergeAppendsAdditiveFields(t *testing.T) {
	s, p := extractedFixture()
	rec := &Record{
		Schema: &schema.FieldSchema{Fields: []schema.FieldDefinition{
			{ID: "ssn", Label: "Social Security Number", Kind: schema.KindText, Required: true},
		}},
	}

	merged, _, _ := Merge(s, p, rec)

	require.Len(t, merged.Fields, 3)
	assert.Equal(t, "ssn", merged.Fields[2].ID, "additive fields go after the extracted ones")
}

func TestMergeIsIdempotent(t *testing.T) {
	s, p := extractedFixture()
	rec := &Record{
		Schema: &schema.FieldSchema{Fields: []schema.FieldDefinition{
			{ID: "ssn", Label: "SSN", Kind: schema.KindText},
		}},
	}

	once, oncePos, _ := Merge(s, p, rec)
	twice, twicePos, _ := Merge(once, oncePos, rec)

	assert.Equal(t, once.Fields, twice.Fields)
	assert.Equal(t, oncePos, twicePos)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	s, p := extractedFixture()
	rec := &Record{
		Schema: &schema.FieldSchema{Fields: []schema.FieldDefinition{
			{ID: "full_name", Label: "Changed"},
		}},
	}

	Merge(s, p, rec)

	assert.Equal(t, "Full Name", s.Fields[0].Label)
}

func TestMergeValueMatching(t *testing.T) {
	s, p := extractedFixture()
	rec := &Record{Values: map[string]string{
		"full_name":     "Jordan Example",   // exact id
		"Date of Birth": "01/02/1990",       // label match
		"birth":         "ignored-by-exact", // substring of "Date of Birth"
		"unrelated_key": "dropped",
	}}

	_, _, values := Merge(s, p, rec)

	assert.Equal(t, "Jordan Example", values["full_name"])
	// Label and substring matches both resolve to dob; either value is
	// acceptable but the key must resolve.
	assert.Contains(t, values, "dob")
	assert.NotContains(t, values, "unrelated_key")
	assert.Len(t, values, 2)
}
