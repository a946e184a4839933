// Package config provides configuration loading and management for the
// geometry generator. It handles loading configuration from YAML files and
// provides the LoKI instrument as the default.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/geometry"
	"nexusgeometry/pkg/nexus"
	"nexusgeometry/pkg/treefile"
)

// ErrConfiguration marks a malformed configuration.
var ErrConfiguration = errors.New("configuration error")

// Component is a named instrument component at a fixed location, in the
// raw units of the calibration data.
type Component struct {
	Name     string       `yaml:"name"`
	Location models.Point `yaml:"location"`
}

// Chopper is a disk chopper with its mechanical parameters.
type Chopper struct {
	Component `yaml:",inline"`

	// RotationSpeed in Hz
	RotationSpeed float64 `yaml:"rotationSpeed"`

	// DiskRadius in raw units
	DiskRadius float64 `yaml:"diskRadius"`

	Slits int64 `yaml:"slits"`
}

// Slit is a slit with its openings in raw units.
type Slit struct {
	Component `yaml:",inline"`
	XGap      float64 `yaml:"xGap"`
	YGap      float64 `yaml:"yGap"`
}

// UserFields keeps the fields of one user in file order.
type UserFields []nexus.UserField

// UnmarshalYAML reads a mapping while preserving key order.
func (u *UserFields) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: user must be a mapping", value.Line)
	}
	fields := make(UserFields, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		fields = append(fields, nexus.UserField{Key: value.Content[i].Value, Value: value.Content[i+1].Value})
	}
	*u = fields
	return nil
}

// MarshalYAML writes the fields back as an ordered mapping.
func (u UserFields) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range u {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Value, Tag: "!!str"})
	}
	return node, nil
}

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Detector constants shared by every bank
	Detector struct {
		// FractionalPrecision is the number of decimals kept when comparing
		// scaled lengths
		FractionalPrecision int `yaml:"fractionalPrecision"`

		// TubeDiameter is the outer tube diameter in raw units
		TubeDiameter float64 `yaml:"tubeDiameter"`

		// TubeDepth is the number of tube rows along the bank depth
		TubeDepth int `yaml:"tubeDepth"`

		StrawsPerTube   int     `yaml:"strawsPerTube"`
		StrawDiameter   float64 `yaml:"strawDiameter"`
		StrawResolution int     `yaml:"strawResolution"`

		// StrawYLoc and StrawZLoc locate an outer straw relative to the
		// tube centre, in raw units
		StrawYLoc float64 `yaml:"strawYLoc"`
		StrawZLoc float64 `yaml:"strawZLoc"`

		// AlignmentOffsetDeg biases the straw rotation, in degrees
		AlignmentOffsetDeg float64 `yaml:"alignmentOffsetDeg"`

		// ScaleFactor converts raw units into LengthUnit
		ScaleFactor float64 `yaml:"scaleFactor"`
		LengthUnit  string  `yaml:"lengthUnit"`

		// PixelIDStart is the first detector number
		PixelIDStart int64 `yaml:"pixelIdStart"`
	} `yaml:"detector"`

	// Banks maps bank identifiers to their calibration records
	Banks map[int]models.BankRecord `yaml:"banks"`

	Entry struct {
		ExperimentID string `yaml:"experimentId"`
		Title        string `yaml:"title"`
		Description  string `yaml:"description"`
	} `yaml:"entry"`

	Source   Component    `yaml:"source"`
	Sample   Component    `yaml:"sample"`
	Choppers []Chopper    `yaml:"choppers"`
	Monitors []Component  `yaml:"monitors"`
	Slits    []Slit       `yaml:"slits"`
	Users    []UserFields `yaml:"users"`

	// Transforms selects components whose translation is written as NXlog
	Transforms struct {
		BanksAsLog    []int    `yaml:"banksAsLog"`
		MonitorsAsLog []string `yaml:"monitorsAsLog"`
	} `yaml:"transforms"`

	// Data optionally attaches measured counts from an existing store
	Data struct {
		// InputFile is the store holding the counts. Empty disables data
		InputFile string `yaml:"inputFile"`

		// Dot paths inside InputFile
		DetectorCounts string `yaml:"detectorCounts"`
		TimeOfFlight   string `yaml:"timeOfFlight"`
		MonitorCounts  string `yaml:"monitorCounts"`

		TimeOfFlightUnit string `yaml:"timeOfFlightUnit"`
	} `yaml:"data"`

	// Output parameters
	Output struct {
		File    string `yaml:"file"`
		Backend string `yaml:"backend"`

		// CompressThreshold compresses datasets with at least this many
		// elements. Zero disables compression
		CompressThreshold int `yaml:"compressThreshold"`

		// CSVFile receives the per-pixel id table when set
		CSVFile string `yaml:"csvFile"`

		// Verbose enables debug logging, like the --verbose flag
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns the LoKI instrument configuration.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default detector parameters
	cfg.Detector.FractionalPrecision = 5
	cfg.Detector.TubeDiameter = 25.4
	cfg.Detector.TubeDepth = 4
	cfg.Detector.StrawsPerTube = 7
	cfg.Detector.StrawDiameter = 8.0
	cfg.Detector.StrawResolution = 512
	cfg.Detector.StrawYLoc = 1.14
	cfg.Detector.StrawZLoc = 7.67
	cfg.Detector.AlignmentOffsetDeg = 5
	cfg.Detector.ScaleFactor = 0.001
	cfg.Detector.LengthUnit = "m"
	cfg.Detector.PixelIDStart = 1

	cfg.Banks = lokiBanks()

	cfg.Entry.ExperimentID = "p1234"
	cfg.Entry.Title = "My experiment"
	cfg.Entry.Description = "this is an experiment"

	cfg.Source = Component{Name: "moderator", Location: models.Point{0, 0, -23600}}
	cfg.Sample = Component{Name: "sample", Location: models.Point{0, 0, 0}}
	cfg.Choppers = []Chopper{
		{Component: Component{Name: "chopper_1", Location: models.Point{0, 0, -17000}}, RotationSpeed: 14, DiskRadius: 350, Slits: 1},
		{Component: Component{Name: "chopper_2", Location: models.Point{0, 0, -16900}}, RotationSpeed: 14, DiskRadius: 350, Slits: 1},
	}
	cfg.Monitors = []Component{
		{Name: "monitor_0", Location: models.Point{0, 0, -16800}},
		{Name: "monitor_1", Location: models.Point{0, 0, -8400}},
		{Name: "monitor_2", Location: models.Point{0, 0, -2000}},
		{Name: "monitor_3", Location: models.Point{0, 0, 200}},
		{Name: "monitor_4", Location: models.Point{0, 0, 5100}},
	}
	cfg.Slits = []Slit{
		{Component: Component{Name: "slit_0", Location: models.Point{0, 0, -8000}}, XGap: 30, YGap: 25},
		{Component: Component{Name: "slit_1", Location: models.Point{0, 0, -3000}}, XGap: 20, YGap: 15},
	}
	cfg.Users = []UserFields{
		{{Key: "name", Value: "Loki Team"}, {Key: "affiliation", Value: "ESS"}, {Key: "facility_user_id", Value: "loki0"}},
	}
	cfg.Transforms.MonitorsAsLog = []string{"monitor_4"}

	cfg.Data.TimeOfFlightUnit = "s"

	// Set default output parameters
	cfg.Output.File = "loki.db"
	cfg.Output.Backend = string(treefile.BackendSQLite)
	cfg.Output.CompressThreshold = 4096
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// A file that lists banks replaces the default banks instead of
	// merging with them
	cfg.Banks = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.Banks == nil {
		cfg.Banks = lokiBanks()
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path.
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// BankIDs returns the configured bank identifiers in ascending order.
func (c *Config) BankIDs() []int {
	ids := make([]int, 0, len(c.Banks))
	for id := range c.Banks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// DetectorParams converts the detector section into geometry parameters.
func (c *Config) DetectorParams() geometry.Params {
	d := c.Detector
	return geometry.Params{
		FractionalPrecision: d.FractionalPrecision,
		TubeDiameter:        d.TubeDiameter,
		TubeDepth:           d.TubeDepth,
		StrawsPerTube:       d.StrawsPerTube,
		StrawDiameter:       d.StrawDiameter,
		StrawResolution:     d.StrawResolution,
		StrawYLoc:           d.StrawYLoc,
		StrawZLoc:           d.StrawZLoc,
		AlignmentOffset:     d.AlignmentOffsetDeg * math.Pi / 180,
		ScaleFactor:         d.ScaleFactor,
	}
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks the configuration before any geometry is built.
func (c *Config) Validate() error {
	d := c.Detector
	switch {
	case d.TubeDepth < 2:
		return configError("tubeDepth %d must be at least 2", d.TubeDepth)
	case d.StrawsPerTube < 3 || d.StrawsPerTube%2 == 0:
		return configError("strawsPerTube %d must be odd and at least 3", d.StrawsPerTube)
	case d.StrawResolution < 1:
		return configError("strawResolution %d must be positive", d.StrawResolution)
	case d.ScaleFactor <= 0:
		return configError("scaleFactor %g must be positive", d.ScaleFactor)
	case d.FractionalPrecision < 0:
		return configError("fractionalPrecision %d must not be negative", d.FractionalPrecision)
	case d.LengthUnit == "":
		return configError("lengthUnit is empty")
	}

	if len(c.Banks) == 0 {
		return configError("no detector banks configured")
	}
	for _, id := range c.BankIDs() {
		if id < 0 {
			return configError("bank %d: identifier must not be negative", id)
		}
		rec := c.Banks[id]
		if len(rec.A) != geometry.CornerCount || len(rec.B) != geometry.CornerCount {
			return configError("bank %d: expected %d corners per face, got A=%d B=%d",
				id, geometry.CornerCount, len(rec.A), len(rec.B))
		}
		if rec.NumTubes <= 0 {
			return configError("bank %d: numTubes %d must be positive", id, rec.NumTubes)
		}
		if rec.NumTubes%d.TubeDepth != 0 {
			return configError("bank %d: numTubes %d is not a multiple of tubeDepth %d", id, rec.NumTubes, d.TubeDepth)
		}
		if rec.NumTubes/d.TubeDepth < 2 {
			return configError("bank %d: tube grid width %d must be at least 2", id, rec.NumTubes/d.TubeDepth)
		}
	}

	if c.Source.Name == "" || c.Sample.Name == "" {
		return configError("source and sample need a name")
	}
	reserved := map[string]bool{nexus.Source: true}
	for _, id := range c.BankIDs() {
		reserved[nexus.DetectorName(id)] = true
	}
	names := map[string]bool{}
	for _, name := range c.componentNames() {
		switch {
		case name == "":
			return configError("component without a name")
		case strings.ContainsAny(name, "/."):
			return configError("component name %q must not contain '/' or '.'", name)
		case reserved[name]:
			return configError("component name %q is used by the instrument itself", name)
		case names[name]:
			return configError("duplicate component name %q", name)
		}
		names[name] = true
	}

	for _, id := range c.Transforms.BanksAsLog {
		if _, ok := c.Banks[id]; !ok {
			return configError("transforms.banksAsLog names unknown bank %d", id)
		}
	}
	monitors := map[string]bool{}
	for _, m := range c.Monitors {
		monitors[m.Name] = true
	}
	for _, name := range c.Transforms.MonitorsAsLog {
		if !monitors[name] {
			return configError("transforms.monitorsAsLog names unknown monitor %q", name)
		}
	}

	if !treefile.Backend(c.Output.Backend).Valid() {
		return configError("unknown output backend %q", c.Output.Backend)
	}
	if c.Output.CompressThreshold < 0 {
		return configError("compressThreshold %d must not be negative", c.Output.CompressThreshold)
	}
	if c.Data.InputFile != "" && c.Data.DetectorCounts == "" && c.Data.MonitorCounts == "" {
		return configError("data.inputFile set without any dataset path")
	}
	return nil
}

// componentNames lists the instrument children named by the configuration.
func (c *Config) componentNames() []string {
	var names []string
	for _, ch := range c.Choppers {
		names = append(names, ch.Name)
	}
	for _, m := range c.Monitors {
		names = append(names, m.Name)
	}
	for _, s := range c.Slits {
		names = append(names, s.Name)
	}
	return names
}
