package instrument

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"nexusgeometry/pkg/geometry"
)

// BankSummary describes one generated bank.
type BankSummary struct {
	BankID    int
	Alignment geometry.Alignment
	Tubes     int
	Pixels    int

	// FirstID and LastID bound the detector numbers of the bank
	FirstID int64
	LastID  int64

	// Centroid is the mean world position of the pixels
	Centroid r3.Vec

	// Spread is the standard deviation of the pixel positions per axis
	Spread r3.Vec
}

// Summarize computes the summaries of built banks and their layouts, which
// must be given in the same order.
func Summarize(banks []*geometry.Bank, layouts []*geometry.Layout) []BankSummary {
	out := make([]BankSummary, 0, len(banks))
	for i, b := range banks {
		l := layouts[i]
		s := BankSummary{
			BankID:    b.ID(),
			Alignment: b.Alignment(),
			Tubes:     b.NumberOfTubes(),
			Pixels:    l.Len(),
		}
		if l.Len() > 0 {
			s.FirstID = l.DetectorNumbers[0]
			s.LastID = l.DetectorNumbers[l.Len()-1]

			// The mean moves with the bank translation, the spread does not
			s.Centroid = r3.Add(b.Translation(), r3.Vec{
				X: stat.Mean(l.X, nil),
				Y: stat.Mean(l.Y, nil),
				Z: stat.Mean(l.Z, nil),
			})
			if l.Len() > 1 {
				s.Spread = r3.Vec{
					X: stat.StdDev(l.X, nil),
					Y: stat.StdDev(l.Y, nil),
					Z: stat.StdDev(l.Z, nil),
				}
			}
		}
		out = append(out, s)
	}
	return out
}
