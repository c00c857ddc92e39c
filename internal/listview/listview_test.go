package listview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estate-admin-api/internal/models"
	"github.com/noah-isme/estate-admin-api/internal/schema"
)

func leadRecords() []models.Record {
	return []models.Record{
		{ID: "1", Module: "leads", Fields: models.Fields{"clientCompany": "Acme Spaces", "city": "Mumbai", "status": "New", "budget": "500000"}},
		{ID: "2", Module: "leads", Fields: models.Fields{"clientCompany": "Bluewater Realty", "city": "Pune", "status": "Qualified", "budget": "120000"}},
		{ID: "3", Module: "leads", Fields: models.Fields{"clientCompany": "acme logistics", "city": "Thane", "status": "New", "budget": "90000"}},
	}
}

func mustSchema(t *testing.T, module string) *schema.Schema {
	t.Helper()
	s, err := schema.Get(module)
	require.NoError(t, err)
	return s
}

func TestFilter_EmptyQueryMatchesAll(t *testing.T) {
	s := mustSchema(t, "leads")
	records := leadRecords()

	got := Filter(s, records, "", "")
	assert.Equal(t, records, got)
}

func TestFilter_CaseInsensitiveSubstring(t *testing.T) {
	s := mustSchema(t, "leads")

	got := Filter(s, leadRecords(), "ACME", "")
	require.Len(t, got, 2)
	// Input order preserved, never re-sorted.
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestFilter_CategoryNarrowsFirst(t *testing.T) {
	s := mustSchema(t, "leads")

	got := Filter(s, leadRecords(), "acme", "New")
	require.Len(t, got, 2)

	got = Filter(s, leadRecords(), "acme", "Qualified")
	assert.Empty(t, got)
}

func TestFilter_Idempotent(t *testing.T) {
	s := mustSchema(t, "leads")

	once := Filter(s, leadRecords(), "mumbai", "")
	twice := Filter(s, once, "mumbai", "")
	assert.Equal(t, once, twice)
}

func TestFilter_NonSearchableFieldIgnored(t *testing.T) {
	s := mustSchema(t, "leads")

	// "budget" is not in the searchable set.
	got := Filter(s, leadRecords(), "500000", "")
	assert.Empty(t, got)
}

func TestSort_NumericAware(t *testing.T) {
	s := mustSchema(t, "leads")
	records := leadRecords()

	asc := Sort(s, records, "budget", "asc")
	assert.Equal(t, []string{"3", "2", "1"}, ids(asc))

	desc := Sort(s, records, "budget", "desc")
	assert.Equal(t, []string{"1", "2", "3"}, ids(desc))

	// Input untouched.
	assert.Equal(t, []string{"1", "2", "3"}, ids(records))
}

func TestSort_StableOnEqualKeys(t *testing.T) {
	s := mustSchema(t, "leads")

	sorted := Sort(s, leadRecords(), "status", "asc")
	// Both "New" records keep their relative order.
	assert.Equal(t, []string{"1", "3", "2"}, ids(sorted))
}

func TestFlatten_NestedAndSlices(t *testing.T) {
	flat := Flatten(models.Fields{
		"landParcelName": "Parcel 7",
		"areaInSqm":      float64(1250),
		"documents": map[string]any{
			"propertyCard": map[string]any{"uploaded": true, "fileName": "pc.pdf"},
			"noc":          map[string]any{"uploaded": false},
		},
		"presenceCity": []any{"Mumbai", "Pune"},
	})

	assert.Equal(t, "Parcel 7", flat["landParcelName"])
	assert.Equal(t, "1250", flat["areaInSqm"])
	assert.Equal(t, "true", flat["documents.propertyCard.uploaded"])
	assert.Equal(t, "pc.pdf", flat["documents.propertyCard.fileName"])
	assert.Equal(t, "false", flat["documents.noc.uploaded"])
	assert.Equal(t, "Mumbai;Pune", flat["presenceCity"])
}

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
