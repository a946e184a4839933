package instrument

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/config"
	"nexusgeometry/pkg/geometry"
	"nexusgeometry/pkg/nexus"
	"nexusgeometry/pkg/store"
	"nexusgeometry/pkg/treefile"
)

const testResolution = 8

// testConfig keeps banks 0 and 2 of LoKI with a short straw resolution.
func testConfig(t *testing.T, backend treefile.Backend) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Banks = map[int]models.BankRecord{0: cfg.Banks[0], 2: cfg.Banks[2]}
	cfg.Detector.StrawResolution = testResolution
	cfg.Output.Backend = string(backend)
	cfg.Output.File = filepath.Join(t.TempDir(), "loki."+string(backend))
	return cfg
}

func newTestGenerator(cfg *config.Config) *Generator {
	g := NewGenerator(cfg)
	g.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestProcess(t *testing.T) {
	for _, backend := range []treefile.Backend{treefile.BackendSQLite, treefile.BackendBadger} {
		t.Run(string(backend), func(t *testing.T) {
			cfg := testConfig(t, backend)
			cfg.Output.CSVFile = filepath.Join(t.TempDir(), "pixels.csv")

			g := newTestGenerator(cfg)
			if err := g.Process(); err != nil {
				t.Fatalf("Process failed: %v", err)
			}

			perBank0 := 224 * 7 * testResolution
			perBank2 := 48 * 7 * testResolution

			l, err := treefile.Load(cfg.Output.File)
			if err != nil {
				t.Fatalf("Failed to load output: %v", err)
			}
			defer l.Close()

			ids0, err := l.GetData("entry.instrument.detector_0.detector_number")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ids0.Len() != perBank0 || ids0.Ints[0] != 1 {
				t.Errorf("detector_0: expected %d numbers from 1, got %d from %d", perBank0, ids0.Len(), ids0.Ints[0])
			}
			ids2, err := l.GetData("entry.instrument.detector_2.detector_number")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ids2.Ints[0] != int64(perBank0+1) {
				t.Errorf("detector_2 should continue at %d, got %d", perBank0+1, ids2.Ints[0])
			}

			x, attrs, err := l.Get("entry.instrument.detector_2.x_pixel_offset")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if x.Len() != perBank2 {
				t.Errorf("expected %d x offsets, got %d", perBank2, x.Len())
			}
			if attrs[nexus.Units].Interface() != "m" {
				t.Errorf("expected unit m, got %v", attrs[nexus.Units])
			}

			dep, err := l.GetData("entry.instrument.detector_0.depends_on")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dep.Interface() != "/entry/instrument/detector_0/transformations/trans_1" {
				t.Errorf("unexpected depends_on %v", dep.Interface())
			}

			dep, err = l.GetData("entry.instrument.monitor_4.depends_on")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := "/entry/instrument/monitor_4/transformations/trans_11/value"; dep.Interface() != want {
				t.Errorf("expected %s, got %v", want, dep.Interface())
			}

			sampleAttrs, err := l.GetAttributes("entry.sample")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sampleAttrs[nexus.NXClass].Interface() != nexus.ClassSample {
				t.Errorf("unexpected sample class %v", sampleAttrs[nexus.NXClass])
			}

			if _, err := l.GetAttributes("entry.user_0"); err != nil {
				t.Errorf("expected user_0: %v", err)
			}
			if _, err := l.GetData("entry.instrument.chopper_1.radius"); err != nil {
				t.Errorf("expected chopper radius: %v", err)
			}

			rows := readCSV(t, cfg.Output.CSVFile)
			if len(rows) != perBank0+perBank2+1 {
				t.Errorf("expected %d csv rows, got %d", perBank0+perBank2+1, len(rows))
			}
			wantHeader := []string{"bank id", "tube id", "straw id", "local straw position", "pixel id"}
			if !reflect.DeepEqual(rows[0], wantHeader) {
				t.Errorf("unexpected header %v", rows[0])
			}
			if want := []string{"0", "0", "0", "1", "2"}; !reflect.DeepEqual(rows[2], want) {
				t.Errorf("expected second pixel row %v, got %v", want, rows[2])
			}
		})
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read csv: %v", err)
	}
	return rows
}

func TestAssembleIsReproducible(t *testing.T) {
	g := newTestGenerator(testConfig(t, treefile.BackendSQLite))
	if err := g.Assemble(); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := append([]int64(nil), g.Layouts()[1].DetectorNumbers...)

	if err := g.Assemble(); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !reflect.DeepEqual(first, g.Layouts()[1].DetectorNumbers) {
		t.Error("detector numbers changed between runs")
	}

	audit := g.GetAudit()
	want := uint64((224 + 48) * 7 * testResolution)
	if audit.Count != want || audit.First != 1 || audit.Last != int64(want) {
		t.Errorf("unexpected audit %+v", audit)
	}
}

func TestSummariesAndLocator(t *testing.T) {
	g := newTestGenerator(testConfig(t, treefile.BackendSQLite))
	if err := g.Assemble(); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	summaries := g.GetSummaries()
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	s := summaries[1]
	if s.BankID != 2 || s.Alignment != geometry.Vertical || s.Tubes != 48 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.FirstID != int64(224*7*testResolution+1) || s.LastID != int64((224+48)*7*testResolution) {
		t.Errorf("unexpected id range %d..%d", s.FirstID, s.LastID)
	}
	if s.Spread.Y <= 0 {
		t.Errorf("vertical tubes should spread along y, got %v", s.Spread)
	}

	loc, err := g.Locator()
	if err != nil {
		t.Fatalf("Locator failed: %v", err)
	}
	layout := g.Layouts()[1]
	bank := g.Banks()[1]
	i := 123
	target := r3.Add(bank.Translation(), layout.Offset(i))
	m := loc.Nearest(target)
	if m.DetectorNumber != layout.DetectorNumbers[i] || m.BankID != 2 {
		t.Errorf("expected detector %d of bank 2, got %+v", layout.DetectorNumbers[i], m)
	}
	if m.Distance > 1e-9 {
		t.Errorf("expected an exact match, got distance %v", m.Distance)
	}
}

func TestBadBankNamesTheBank(t *testing.T) {
	cfg := testConfig(t, treefile.BackendSQLite)
	rec := cfg.Banks[2]
	rec.B = append([]models.Point(nil), rec.B...)
	rec.B[3][1] += 1
	cfg.Banks[2] = rec

	err := newTestGenerator(cfg).Process()
	if !errors.Is(err, geometry.ErrGeometryInconsistency) {
		t.Fatalf("expected geometry inconsistency, got %v", err)
	}
	var bankErr *geometry.BankError
	if !errors.As(err, &bankErr) || bankErr.BankID != 2 {
		t.Errorf("expected error naming bank 2, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Output.File); !os.IsNotExist(statErr) {
		t.Error("no output should be written for an invalid bank")
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := testConfig(t, treefile.BackendSQLite)
	cfg.Detector.StrawsPerTube = 6
	if err := newTestGenerator(cfg).Process(); !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestComponentCannotReplaceDetector(t *testing.T) {
	cfg := testConfig(t, treefile.BackendSQLite)
	cfg.Monitors = append(cfg.Monitors, config.Component{Name: "detector_0"})

	if err := newTestGenerator(cfg).Process(); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := os.Stat(cfg.Output.File); !os.IsNotExist(err) {
		t.Errorf("expected no output file, got %v", err)
	}
}

func writeInput(t *testing.T, pixels int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.db")
	s, err := treefile.CreateStore(treefile.BackendSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	counts := make([][]int64, pixels)
	for i := range counts {
		counts[i] = []int64{int64(i), int64(i)}
	}
	root := nexus.NewGroup(nil).Set("workspace", nexus.NewGroup(nil).
		Set("values", nexus.NewLeaf(models.IntMatrix(counts), nil)).
		Set("axis1", nexus.NewLeaf(models.FloatArray([]float64{0, 0.01, 0.02}), nil)).
		Set("monitor", nexus.NewLeaf(models.IntArray([]int64{5, 6}), nil)))
	if err := treefile.NewBuilder(s, 0).Write(root); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAttachData(t *testing.T) {
	perBank0 := 224 * 7 * testResolution
	perBank2 := 48 * 7 * testResolution

	cfg := testConfig(t, treefile.BackendSQLite)
	cfg.Data.InputFile = writeInput(t, perBank0+perBank2)
	cfg.Data.DetectorCounts = "workspace.values"
	cfg.Data.TimeOfFlight = "workspace.axis1"
	cfg.Data.MonitorCounts = "workspace.monitor"

	g := newTestGenerator(cfg)
	if err := g.Assemble(); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	n, ok := g.Tree().Lookup("/entry/instrument/detector_2/data/value")
	if !ok {
		t.Fatal("expected detector_2 data")
	}
	v := n.(*nexus.Leaf).Value
	if !reflect.DeepEqual(v.Shape, []int{perBank2, 2}) {
		t.Errorf("unexpected data shape %v", v.Shape)
	}
	if v.Ints[0] != int64(perBank0) {
		t.Errorf("bank 2 data should start at row %d, got %d", perBank0, v.Ints[0])
	}

	tof, ok := g.Tree().Lookup("/entry/instrument/detector_0/time_of_flight")
	if !ok {
		t.Fatal("expected time_of_flight")
	}
	if u := tof.Attributes()[nexus.Units].Interface(); u != "s" {
		t.Errorf("expected tof unit s, got %v", u)
	}
	if _, ok := g.Tree().Lookup("/entry/instrument/monitor_2/data/value"); !ok {
		t.Error("expected monitor data")
	}

	t.Run("TooFewRows", func(t *testing.T) {
		cfg.Data.InputFile = writeInput(t, perBank0)
		err := newTestGenerator(cfg).Assemble()
		if err == nil {
			t.Error("expected error for short detector counts")
		}
	})

	t.Run("MissingPath", func(t *testing.T) {
		cfg.Data.InputFile = writeInput(t, perBank0+perBank2)
		cfg.Data.DetectorCounts = "workspace.absent"
		err := newTestGenerator(cfg).Assemble()
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("MissingStoreContinues", func(t *testing.T) {
		cfg.Data.InputFile = filepath.Join(t.TempDir(), "absent.db")
		g := newTestGenerator(cfg)
		if err := g.Assemble(); err != nil {
			t.Fatalf("expected the run to continue, got %v", err)
		}
		if _, ok := g.Tree().Lookup("/entry/instrument/detector_0/data"); ok {
			t.Error("expected no data without an input store")
		}
	})
}
