package raw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) Record {
	t.Helper()
	v, err := Decode([]byte(`{
		"basic_info": {"title": "  SEO Lead ", "entityUrn": "urn:li:fsd_jobPosting:123"},
		"detailed_info": {
			"jobPostingId": 4012345678901,
			"workRemoteAllowed": true,
			"listedAt": 1700000000000,
			"companyDetails": {
				"com.linkedin.b": {"companyResolutionResult": {"name": "Beta"}},
				"com.linkedin.a": {"other": 1}
			},
			"workplaceTypes": ["urn:li:fs_workplaceType:2"],
			"offices": [{"city": "Paris"}, {"city": "Lyon"}]
		},
		"score": 4.5,
		"flag": "true",
		"empty": null
	}`))
	require.NoError(t, err)
	rec, ok := FromAny(v)
	require.True(t, ok)
	return rec
}

func TestRecord_String(t *testing.T) {
	rec := sample(t)

	assert.Equal(t, "SEO Lead", rec.String("basic_info", "title"))
	assert.Equal(t, "4012345678901", rec.String("detailed_info", "jobPostingId"))
	assert.Equal(t, "", rec.String("basic_info", "missing", "deeper"))
	assert.Equal(t, "", rec.String("basic_info", "title", "not-a-map"))
	assert.Equal(t, "", rec.String("empty"))
	assert.Equal(t, "Lyon", rec.String("detailed_info", "offices", "1", "city"))
	assert.Equal(t, "", rec.String("detailed_info", "offices", "7", "city"))
}

func TestRecord_Wildcard(t *testing.T) {
	rec := sample(t)

	// "com.linkedin.a" sorts first but lacks the path, so the next key wins.
	assert.Equal(t, "Beta", rec.String("detailed_info", "companyDetails", Wildcard, "companyResolutionResult", "name"))
	assert.Equal(t, "Paris", rec.String("detailed_info", "offices", Wildcard, "city"))
}

func TestRecord_FirstString(t *testing.T) {
	rec := sample(t)
	got := rec.FirstString(P("detailed_info", "title"), P("basic_info", "title"))
	assert.Equal(t, "SEO Lead", got)
	assert.Equal(t, "", rec.FirstString(P("nope"), P("nada")))
}

func TestRecord_Scalars(t *testing.T) {
	rec := sample(t)

	b, ok := rec.Bool("detailed_info", "workRemoteAllowed")
	assert.True(t, ok)
	assert.True(t, b)

	b, ok = rec.Bool("flag")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = rec.Bool("basic_info", "title")
	assert.False(t, ok)

	n, ok := rec.Int64("detailed_info", "listedAt")
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000000), n)

	f, ok := rec.Float64("score")
	assert.True(t, ok)
	assert.InDelta(t, 4.5, f, 0.0001)

	assert.Equal(t, []string{"urn:li:fs_workplaceType:2"}, rec.Strings(P("detailed_info", "workplaceTypes")))
	assert.Equal(t, []string{"Paris", "Lyon"}, rec.Strings(P("detailed_info", "offices"), "city"))
}

func TestRecord_NilSafe(t *testing.T) {
	var rec Record
	assert.Equal(t, "", rec.String("a"))
	assert.Nil(t, rec.Map("a"))
	assert.Nil(t, rec.Slice("a"))
	_, ok := rec.Int64("a")
	assert.False(t, ok)
}

func TestRecords(t *testing.T) {
	v, err := Decode([]byte(`[{"a":1}, 2, "x", {"b":2}]`))
	require.NoError(t, err)
	assert.Len(t, Records(v), 2)
	assert.Nil(t, Records("not a list"))
}
