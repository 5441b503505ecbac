// Package manifest assembles the typed provenance manifest embedded into
// signed media. Assertions are plain structs serialized once, never
// mutated dictionaries.
package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// Assertion labels used by this generator.
const (
	ActionsLabel       = "c2pa.actions"
	ExifLabel          = "stds.exif"
	SigningMethodLabel = "com.clearsign.signing-method"
)

// CreatedAction is the action recorded for newly captured media.
const CreatedAction = "c2pa.created"

// Manifest is the top-level provenance structure handed to the embedding
// engine as JSON.
type Manifest struct {
	ClaimGenerator string      `json:"claim_generator"`
	Title          string      `json:"title,omitempty"`
	Format         string      `json:"format,omitempty"`
	Assertions     []Assertion `json:"assertions"`
}

// Assertion is one labeled provenance statement.
type Assertion struct {
	Label string `json:"label"`
	Data  any    `json:"data"`
}

// ActionsData lists the editorial actions applied to the asset.
type ActionsData struct {
	Actions []Action `json:"actions"`
}

// Action records a single editorial action.
type Action struct {
	Action        string    `json:"action"`
	When          time.Time `json:"when,omitzero"`
	SoftwareAgent string    `json:"softwareAgent,omitempty"`
}

// GeoLocation is an optional capture location attached as an EXIF
// assertion.
type GeoLocation struct {
	Latitude  float64 `json:"exif:GPSLatitude"`
	Longitude float64 `json:"exif:GPSLongitude"`
}

// SigningMethodData records which trust backend produced the signature
// and its assurance tag, so verifiers can weigh the claim accordingly.
type SigningMethodData struct {
	Method         string `json:"method"`
	AssuranceLevel string `json:"assurance_level"`
}

// Build assembles the manifest for one signing operation: a created
// action, the optional capture location, and the signing-method record
// for the selected mode.
func Build(mode interfaces.SigningMode, title, format string, geo *GeoLocation, generatorVersion string) *Manifest {
	m := &Manifest{
		ClaimGenerator: claimGenerator(mode, generatorVersion),
		Title:          title,
		Format:         format,
		Assertions: []Assertion{
			{
				Label: ActionsLabel,
				Data: ActionsData{Actions: []Action{{
					Action:        CreatedAction,
					When:          time.Now().UTC(),
					SoftwareAgent: claimGenerator(mode, generatorVersion),
				}}},
			},
		},
	}

	if geo != nil {
		m.Assertions = append(m.Assertions, Assertion{Label: ExifLabel, Data: *geo})
	}

	m.Assertions = append(m.Assertions, Assertion{
		Label: SigningMethodLabel,
		Data: SigningMethodData{
			Method:         mode.String(),
			AssuranceLevel: mode.AssuranceLevel(),
		},
	})

	return m
}

// JSON serializes the manifest for the embedding engine.
func (m *Manifest) JSON() ([]byte, error) {
	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("could not serialize manifest: %w", err)
	}
	return out, nil
}

func claimGenerator(mode interfaces.SigningMode, version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("ClearSign/%s (%s)", version, mode.String())
}
