package nexus

import (
	"fmt"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/geometry"
)

// Detector dataset names.
const (
	DetectorNumber = "detector_number"
	PixelShape     = "pixel_shape"
	XPixelOffset   = "x_pixel_offset"
	YPixelOffset   = "y_pixel_offset"
	ZPixelOffset   = "z_pixel_offset"
	Vertices       = "vertices"
	Cylinders      = "cylinders"
	TimeOfFlight   = "time_of_flight"
	Data           = "data"
)

// DetectorName is the instrument child name of a bank.
func DetectorName(bankID int) string { return fmt.Sprintf("detector_%d", bankID) }

// CylindricalGeometry renders the shared pixel shape.
func CylindricalGeometry(shape *geometry.Cylinder, units string) *Group {
	coords := shape.Coordinates()
	rows := make([][]float64, len(coords))
	for i, c := range coords {
		rows[i] = []float64{c.X, c.Y, c.Z}
	}
	g := NewGroup(ClassAttr(ClassCylindricalGeometry))
	g.Set(Cylinders, NewLeaf(models.IntMatrix([][]int64{{0, 1, 2}}), nil))
	g.Set(Vertices, NewLeaf(models.FloatMatrix(rows), UnitsAttr(units)))
	return g
}

// DetectorGeometry renders the NXdetector subtree of a built bank from its
// flattened layout.
func DetectorGeometry(bank *geometry.Bank, layout *geometry.Layout, opts RenderOptions) (*Group, error) {
	if layout == nil || layout.BankID != bank.ID() {
		return nil, fmt.Errorf("bank %d: layout does not belong to the bank", bank.ID())
	}
	if bank.Tube() == nil || bank.Tube().Straw() == nil {
		return nil, fmt.Errorf("bank %d: detector geometry requested before build", bank.ID())
	}
	if opts.Transforms == nil {
		return nil, fmt.Errorf("bank %d: no transformation counter", bank.ID())
	}

	units := UnitsAttr(opts.LengthUnit)
	det := NewGroup(ClassAttr(ClassDetector))
	det.Set(DetectorNumber, NewLeaf(models.IntArray(layout.DetectorNumbers), nil))
	det.Set(PixelShape, CylindricalGeometry(bank.Tube().Straw().Pixel().Shape(), opts.LengthUnit))
	det.Set(XPixelOffset, NewLeaf(models.FloatArray(layout.X), units))
	det.Set(YPixelOffset, NewLeaf(models.FloatArray(layout.Y), units))
	det.Set(ZPixelOffset, NewLeaf(models.FloatArray(layout.Z), units))

	AddTransformations(det, Placement{
		Position:      bank.Translation(),
		TransformPath: opts.TransformPath,
		AsLog:         opts.AsLog,
		Units:         opts.LengthUnit,
	}, opts.Transforms)
	return det, nil
}

// AddDetectorData attaches counts and time of flight to a detector group.
func AddDetectorData(det *Group, counts, timeOfFlight models.Value, tofUnit string) {
	det.Set(Data, NXLog(NewLeaf(counts, nil), nil, DefaultTimeUnit))
	det.Set(TimeOfFlight, NXLog(NewLeaf(timeOfFlight, UnitsAttr(tofUnit)), nil, DefaultTimeUnit))
}
