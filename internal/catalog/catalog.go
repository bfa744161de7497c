// Package catalog loads the static resort catalog from YAML.
package catalog

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Resort types.
const (
	TypeAlpine = "alpine"
	TypeXC     = "xc"
)

// Point is a geographic sample point with coordinates.
type Point struct {
	Lat   float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon   float64 `yaml:"lon" validate:"gte=-180,lte=180"`
	ElevM int     `yaml:"elev_m"`
	Label string  `yaml:"label"`
}

// Costs holds the manually maintained cost entries for a resort.
// Skipass prices apply to alpine resorts only.
type Costs struct {
	SkipassDayEUR      float64 `yaml:"skipass_day_eur"`
	FerryRoundtripEUR  float64 `yaml:"ferry_roundtrip_eur"`
	RequiresFerry      bool    `yaml:"requires_ferry"`
	RequiresATVignette bool    `yaml:"requires_at_vignette"`
	RequiresCHVignette bool    `yaml:"requires_ch_vignette"`
}

// Resort is one catalog entry with its two sample points and metadata.
type Resort struct {
	ID           string `yaml:"id" validate:"required"`
	Name         string `yaml:"name" validate:"required"`
	Country      string `yaml:"country"`
	Type         string `yaml:"type" validate:"required,oneof=alpine xc"`
	DriveTimeMin int    `yaml:"drive_time_min" validate:"required,gt=0"`
	Low          Point  `yaml:"low"`
	High         Point  `yaml:"high"`
	Costs        Costs  `yaml:"costs"`
}

// Icon returns the emoji used for the resort type in messages.
func (r Resort) Icon() string {
	if r.Type == TypeXC {
		return "⛷"
	}
	return "🎿"
}

// Catalog is the ordered, immutable resort list for one run.
type Catalog struct {
	Resorts []Resort
	Skipped int
}

type catalogFile struct {
	Resorts []Resort `yaml:"resorts"`
}

// Load reads the catalog from the given YAML file. Entries that fail
// validation (missing fields, out-of-range coordinates) are skipped and
// counted, not fatal; catalog order is preserved.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //#nosec: G304
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	validate := validator.New()
	c := &Catalog{}
	for _, r := range file.Resorts {
		if err := validate.Struct(r); err != nil {
			c.Skipped++
			continue
		}
		c.Resorts = append(c.Resorts, r)
	}

	return c, nil
}
