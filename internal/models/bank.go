package models

// Point is an x, y, z triple in raw calibration units.
type Point [3]float64

// BankRecord is the facility calibration record for one detector bank.
type BankRecord struct {
	// A holds the four corner points of the bank end-face A
	A []Point `yaml:"A"`

	// B holds the four corner points of the bank end-face B
	B []Point `yaml:"B"`

	// NumTubes is the number of tubes in the bank
	NumTubes int `yaml:"numTubes"`

	// BankOffset is added to the bank translation after normalisation
	BankOffset Point `yaml:"bankOffset"`
}
