package instrument

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"nexusgeometry/pkg/geometry"
)

// CSVHeader names the columns of the pixel table.
var CSVHeader = []string{"bank id", "tube id", "straw id", "local straw position", "pixel id"}

// WriteCSV writes one row per pixel in detector number order.
func WriteCSV(path string, layouts []*geometry.Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return err
	}
	for _, l := range layouts {
		bank := strconv.Itoa(l.BankID)
		for i := 0; i < l.Len(); i++ {
			row := []string{
				bank,
				strconv.Itoa(l.TubeIDs[i]),
				strconv.FormatInt(l.StrawIDs[i], 10),
				strconv.Itoa(l.LocalPixels[i]),
				strconv.FormatInt(l.DetectorNumbers[i], 10),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("bank %d row %d: %w", l.BankID, i, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
