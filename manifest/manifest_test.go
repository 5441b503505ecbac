package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

var allModes = []interfaces.SigningMode{
	interfaces.ModeBundled,
	interfaces.ModeStoreBacked,
	interfaces.ModeHardwareEnclave,
	interfaces.ModeUserProvided,
	interfaces.ModeRemoteService,
}

func findAssertion(m *Manifest, label string) (Assertion, bool) {
	for _, a := range m.Assertions {
		if a.Label == label {
			return a, true
		}
	}
	return Assertion{}, false
}

func TestBuildAssertionInvariants(t *testing.T) {
	for _, mode := range allModes {
		m := Build(mode, "photo.jpg", "image/jpeg", nil, "1.2.3")

		actions, ok := findAssertion(m, ActionsLabel)
		require.True(t, ok, "Every manifest should carry an actions assertion (%s)", mode)
		data, ok := actions.Data.(ActionsData)
		require.True(t, ok)
		require.NotEmpty(t, data.Actions)
		assert.Equal(t, CreatedAction, data.Actions[0].Action, "First action should record creation")

		method, ok := findAssertion(m, SigningMethodLabel)
		require.True(t, ok, "Every manifest should carry a signing-method assertion (%s)", mode)
		methodData, ok := method.Data.(SigningMethodData)
		require.True(t, ok)
		assert.Equal(t, mode.String(), methodData.Method, "Method should equal the selected mode")
		assert.Equal(t, mode.AssuranceLevel(), methodData.AssuranceLevel)

		assert.Contains(t, m.ClaimGenerator, mode.String(), "Claim generator should be mode specific")
	}
}

func TestBuildGeoLocation(t *testing.T) {
	geo := &GeoLocation{Latitude: 48.8584, Longitude: 2.2945}
	m := Build(interfaces.ModeStoreBacked, "", "image/jpeg", geo, "")

	exif, ok := findAssertion(m, ExifLabel)
	require.True(t, ok, "Location should produce an EXIF assertion")
	assert.Equal(t, *geo, exif.Data)

	// Without a location there is no EXIF assertion.
	m = Build(interfaces.ModeStoreBacked, "", "image/jpeg", nil, "")
	_, ok = findAssertion(m, ExifLabel)
	assert.False(t, ok, "No location, no EXIF assertion")
}

func TestManifestJSON(t *testing.T) {
	m := Build(interfaces.ModeHardwareEnclave, "photo.jpg", "image/jpeg", nil, "1.2.3")

	out, err := m.JSON()
	require.NoError(t, err, "Manifest should serialize")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "ClearSign/1.2.3 (hardware)", decoded["claim_generator"])
	assert.Equal(t, "photo.jpg", decoded["title"])

	assertions, ok := decoded["assertions"].([]any)
	require.True(t, ok)
	assert.Equal(t, 2, len(assertions), "Actions plus signing-method")
}
