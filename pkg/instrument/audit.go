package instrument

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"

	"nexusgeometry/pkg/geometry"
)

// AuditReport describes the detector numbers handed out in one run.
type AuditReport struct {
	Count uint64
	First int64
	Last  int64
}

// AuditDetectorNumbers checks that the detector numbers of all layouts form
// one contiguous run starting at start, with no number used twice.
func AuditDetectorNumbers(layouts []*geometry.Layout, start int64) (AuditReport, error) {
	bm := roaring.New()
	var total uint64

	for _, l := range layouts {
		for _, n := range l.DetectorNumbers {
			if n < 0 || n > math.MaxUint32 {
				return AuditReport{}, fmt.Errorf("bank %d: detector number %d outside the audited range", l.BankID, n)
			}
			if !bm.CheckedAdd(uint32(n)) {
				return AuditReport{}, fmt.Errorf("bank %d: detector number %d assigned twice", l.BankID, n)
			}
			total++
		}
	}
	if total == 0 {
		return AuditReport{}, fmt.Errorf("no detector numbers assigned")
	}

	report := AuditReport{
		Count: bm.GetCardinality(),
		First: int64(bm.Minimum()),
		Last:  int64(bm.Maximum()),
	}
	if report.First != start {
		return report, fmt.Errorf("detector numbers start at %d, expected %d", report.First, start)
	}
	if uint64(report.Last-report.First+1) != report.Count {
		return report, fmt.Errorf("detector numbers %d..%d have gaps: %d assigned", report.First, report.Last, report.Count)
	}
	return report, nil
}
