package predict

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Coefficients is the trained parameter table for the lap-time model and
// the podium classifier. The table ships with built-in defaults and can be
// replaced by a YAML file at startup.
type Coefficients struct {
	Version string `yaml:"version"`

	// Lap-time regressor terms.
	BasePaceSecPerKM    float64 `yaml:"base_pace_sec_per_km"`
	FuelEffectSecPerLap float64 `yaml:"fuel_effect_sec_per_lap"`
	TempSensitivity     float64 `yaml:"temp_sensitivity_sec_per_c"`
	ReferenceTrackTemp  float64 `yaml:"reference_track_temp_c"`
	RainPenaltySec      float64 `yaml:"rain_penalty_sec"`

	// Podium classifier terms.
	GridWeight      float64 `yaml:"grid_weight"`
	RatingScale     float64 `yaml:"rating_scale"`
	WetSkillGain    float64 `yaml:"wet_skill_gain"`
	FamiliarityGain float64 `yaml:"familiarity_gain"`

	// PaceSecPer100Rating converts a rating gap into a per-lap pace delta.
	PaceSecPer100Rating float64 `yaml:"pace_sec_per_100_rating"`

	Compounds []CompoundCoeffs `yaml:"compounds"`
}

// CompoundCoeffs models one tyre compound's pace and degradation.
type CompoundCoeffs struct {
	Name            string  `yaml:"name"`
	PaceOffsetSec   float64 `yaml:"pace_offset_sec"`
	DegSecPerLap    float64 `yaml:"deg_sec_per_lap"`
	CliffLap        int     `yaml:"cliff_lap"`
	CliffPenaltySec float64 `yaml:"cliff_penalty_sec"`
}

// DefaultCoefficients returns the built-in parameter table.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Version:             "builtin",
		BasePaceSecPerKM:    17.2,
		FuelEffectSecPerLap: 0.055,
		TempSensitivity:     0.02,
		ReferenceTrackTemp:  35,
		RainPenaltySec:      11.0,
		GridWeight:          0.09,
		RatingScale:         180,
		WetSkillGain:        0.25,
		FamiliarityGain:     0.12,
		PaceSecPer100Rating: 0.18,
		Compounds: []CompoundCoeffs{
			{Name: "SOFT", PaceOffsetSec: 0, DegSecPerLap: 0.085, CliffLap: 18, CliffPenaltySec: 0.40},
			{Name: "MEDIUM", PaceOffsetSec: 0.45, DegSecPerLap: 0.055, CliffLap: 28, CliffPenaltySec: 0.30},
			{Name: "HARD", PaceOffsetSec: 0.95, DegSecPerLap: 0.035, CliffLap: 40, CliffPenaltySec: 0.25},
			{Name: "INTERMEDIATE", PaceOffsetSec: 5.5, DegSecPerLap: 0.060, CliffLap: 25, CliffPenaltySec: 0.50},
			{Name: "WET", PaceOffsetSec: 9.0, DegSecPerLap: 0.045, CliffLap: 35, CliffPenaltySec: 0.50},
		},
	}
}

// LoadCoefficients reads a coefficient table from a YAML file.
func LoadCoefficients(path string) (Coefficients, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Coefficients{}, fmt.Errorf("%w: %w", ErrCoefficients, err)
	}
	var c Coefficients
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Coefficients{}, fmt.Errorf("%w: %w", ErrCoefficients, err)
	}
	if len(c.Compounds) == 0 {
		return Coefficients{}, fmt.Errorf("%w: no compounds in %s", ErrCoefficients, path)
	}
	return c, nil
}

// PaceDelta converts a rating gap to a per-lap pace delta in seconds.
// Drivers below the reference rating are slower (positive delta).
func (c Coefficients) PaceDelta(driverRating, referenceRating float64) float64 {
	return (referenceRating - driverRating) / 100.0 * c.PaceSecPer100Rating
}

// Compound returns the coefficient row for a compound name, falling back
// to the first row for unknown compounds.
func (c Coefficients) Compound(name string) CompoundCoeffs {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, cc := range c.Compounds {
		if cc.Name == name {
			return cc
		}
	}
	return c.Compounds[0]
}
