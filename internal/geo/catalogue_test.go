package geo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

const stationsYAML = `
stations:
  - code: HQ
    name: Nairobi HQ
    lat: -1.286389
    lng: 36.817223
    radius_meters: 150
    expected_start: "08:00"
    late_grace: 15m
  - code: mombasa
    name: Mombasa Depot
    lat: -4.043477
    lng: 39.668206
    radius_meters: 300
`

func TestLoadCatalogue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(stationsYAML), 0o600))

	cat, err := LoadCatalogue(path)
	require.NoError(t, err)

	hq, err := cat.Lookup(id.StationCode("hq"))
	require.NoError(t, err)
	assert.Equal(t, "Nairobi HQ", hq.Name)
	assert.Equal(t, 8*time.Hour, hq.ExpectedStart)
	assert.Equal(t, 15*time.Minute, hq.LateGrace)

	depot, err := cat.Lookup(id.StationCode("mombasa"))
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, depot.ExpectedStart, "expected start defaults to 08:00")
	assert.Zero(t, depot.LateGrace)

	codes := []id.StationCode{}
	for _, s := range cat.List() {
		codes = append(codes, s.Code)
	}
	assert.Equal(t, []id.StationCode{"hq", "mombasa"}, codes)
}

func TestCatalogueLookupUnknown(t *testing.T) {
	cat, err := NewCatalogue(nairobiHQ)
	require.NoError(t, err)

	_, err = cat.Lookup("nowhere")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestParseCatalogueRejectsBadStations(t *testing.T) {
	cases := map[string]string{
		"zero radius": `
stations:
  - {code: a, name: A, lat: 0, lng: 0, radius_meters: 0}`,
		"bad latitude": `
stations:
  - {code: a, name: A, lat: 95, lng: 0, radius_meters: 10}`,
		"duplicate code": `
stations:
  - {code: a, name: A, lat: 0, lng: 0, radius_meters: 10}
  - {code: A, name: B, lat: 0, lng: 0, radius_meters: 10}`,
		"bad start": `
stations:
  - {code: a, name: A, lat: 0, lng: 0, radius_meters: 10, expected_start: "8am"}`,
		"bad grace": `
stations:
  - {code: a, name: A, lat: 0, lng: 0, radius_meters: 10, late_grace: "soon"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalogue([]byte(body))
			require.Error(t, err)
		})
	}
}
