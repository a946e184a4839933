package nexus

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/geometry"
	"nexusgeometry/pkg/ids"
)

func stringAttr(t *testing.T, attrs models.Attributes, key string) string {
	t.Helper()
	v, ok := attrs[key]
	if !ok {
		t.Fatalf("attribute %q missing", key)
	}
	s, ok := v.Interface().(string)
	if !ok {
		t.Fatalf("attribute %q is not a string: %v", key, v)
	}
	return s
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestGroupOrderAndLookup(t *testing.T) {
	g := NewGroup(ClassAttr(ClassEntry))
	g.Set("b", NewLeaf(models.IntScalar(1), nil))
	g.Set("a", NewGroup(nil).Set("leaf", NewLeaf(models.StringScalar("x"), nil)))
	g.Set("b", NewLeaf(models.IntScalar(2), nil))

	if got := g.Names(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("expected insertion order [b a], got %v", got)
	}
	n, ok := g.Lookup("/a/leaf")
	if !ok {
		t.Fatal("expected /a/leaf to resolve")
	}
	if leaf := n.(*Leaf); leaf.Value.Interface() != "x" {
		t.Errorf("unexpected leaf value %v", leaf.Value)
	}
	if _, ok := g.Lookup("b/c"); ok {
		t.Error("expected lookup through a leaf to fail")
	}
	if b, _ := g.Get("b"); b.(*Leaf).Value.Interface() != int64(2) {
		t.Error("expected replaced child to hold the new value")
	}
}

func TestTransformationGroupNaming(t *testing.T) {
	counter := ids.NewCounter(ids.TransformStart)

	first := TranslationGroup([]float64{2}, r3.Vec{Z: 1}, "m", false, counter)
	second := RotationGroup([]float64{90}, r3.Vec{Y: 1}, "deg", false, counter)

	if got := first.Names(); !reflect.DeepEqual(got, []string{"trans_1"}) {
		t.Errorf("expected trans_1, got %v", got)
	}
	if got := second.Names(); !reflect.DeepEqual(got, []string{"trans_2"}) {
		t.Errorf("expected trans_2, got %v", got)
	}
	if c := stringAttr(t, first.Attrs, NXClass); c != ClassTransformations {
		t.Errorf("unexpected class %s", c)
	}

	n, _ := second.Get("trans_2")
	leaf := n.(*Leaf)
	if typ := stringAttr(t, leaf.Attrs, TransformationType); typ != "rotation" {
		t.Errorf("expected rotation, got %s", typ)
	}
	if dep := stringAttr(t, leaf.Attrs, DependsOn); dep != "." {
		t.Errorf("expected default depends_on '.', got %s", dep)
	}
	if vec := leaf.Attrs[Vector].Floats; !reflect.DeepEqual(vec, []float64{0, 1, 0}) {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestNXLog(t *testing.T) {
	t.Run("ArrayGetsRowTimes", func(t *testing.T) {
		g := NXLog(NewLeaf(models.FloatArray([]float64{5, 6, 7}), UnitsAttr("Hz")), nil, DefaultTimeUnit)
		if c := stringAttr(t, g.Attrs, NXClass); c != ClassLog {
			t.Errorf("unexpected class %s", c)
		}
		if u := stringAttr(t, g.Attrs, Units); u != "Hz" {
			t.Errorf("expected data units to move to the group, got %s", u)
		}
		n, _ := g.Get(Time)
		times := n.(*Leaf)
		if !reflect.DeepEqual(times.Value.Ints, []int64{0, 1, 2}) {
			t.Errorf("unexpected times %v", times.Value.Ints)
		}
		if u := stringAttr(t, times.Attrs, Units); u != "ns" {
			t.Errorf("unexpected time unit %s", u)
		}
		v, _ := g.Get(NXLogValue)
		if len(v.Attributes()) != 0 {
			t.Errorf("expected value attributes to be cleared, got %v", v.Attributes())
		}
	})

	t.Run("ScalarGetsSingleTime", func(t *testing.T) {
		g := NXLog(NewLeaf(models.FloatScalar(14), nil), nil, DefaultTimeUnit)
		n, _ := g.Get(Time)
		if got := n.(*Leaf).Value.Ints; !reflect.DeepEqual(got, []int64{0}) {
			t.Errorf("expected [0], got %v", got)
		}
	})

	t.Run("ExplicitTimes", func(t *testing.T) {
		times := models.FloatArray([]float64{0.5, 1.5})
		g := NXLog(NewLeaf(models.FloatArray([]float64{1, 2}), nil), &times, "s")
		n, _ := g.Get(Time)
		leaf := n.(*Leaf)
		if !reflect.DeepEqual(leaf.Value.Floats, []float64{0.5, 1.5}) {
			t.Errorf("unexpected times %v", leaf.Value.Floats)
		}
		if u := stringAttr(t, leaf.Attrs, Units); u != "s" {
			t.Errorf("unexpected unit %s", u)
		}
	})
}

func TestAddTransformations(t *testing.T) {
	t.Run("DirectionAndDistance", func(t *testing.T) {
		counter := ids.NewCounter(ids.TransformStart)
		geo := AddTransformations(NewGroup(nil), Placement{
			Position:      r3.Vec{X: 3, Y: 4},
			TransformPath: "/entry/instrument/source/transformations/",
			Name:          "moderator",
			Units:         "m",
		}, counter)

		n, ok := geo.Lookup("transformations/trans_1")
		if !ok {
			t.Fatal("expected transformations/trans_1")
		}
		leaf := n.(*Leaf)
		if !reflect.DeepEqual(leaf.Value.Floats, []float64{5}) {
			t.Errorf("expected distance 5, got %v", leaf.Value.Floats)
		}
		if !reflect.DeepEqual(leaf.Attrs[Vector].Floats, []float64{0.6, 0.8, 0}) {
			t.Errorf("unexpected direction %v", leaf.Attrs[Vector].Floats)
		}

		dep, _ := geo.Get(DependsOn)
		if got := dep.(*Leaf).Value.Interface(); got != "/entry/instrument/source/transformations/trans_1" {
			t.Errorf("unexpected depends_on %v", got)
		}
		name, _ := geo.Get(Name)
		if got := name.(*Leaf).Value.Strings; !reflect.DeepEqual(got, []string{"moderator"}) {
			t.Errorf("unexpected name %v", got)
		}
	})

	t.Run("OriginPointsAlongZ", func(t *testing.T) {
		geo := AddTransformations(NewGroup(nil), Placement{Units: "m"}, ids.NewCounter(1))
		n, _ := geo.Lookup("transformations/trans_1")
		leaf := n.(*Leaf)
		if !reflect.DeepEqual(leaf.Attrs[Vector].Floats, []float64{0, 0, 1}) {
			t.Errorf("expected +z, got %v", leaf.Attrs[Vector].Floats)
		}
		if leaf.Value.Floats[0] != 0 {
			t.Errorf("expected zero distance, got %v", leaf.Value.Floats)
		}
		if _, ok := geo.Get(DependsOn); ok {
			t.Error("expected no depends_on without a transform path")
		}
	})

	t.Run("AsLog", func(t *testing.T) {
		geo := AddTransformations(NewGroup(nil), Placement{
			Position:      r3.Vec{Z: 2},
			TransformPath: "/entry/instrument/monitor_4/transformations/",
			AsLog:         true,
			Units:         "m",
		}, ids.NewCounter(7))
		n, ok := geo.Lookup("transformations/trans_7")
		if !ok {
			t.Fatal("expected trans_7")
		}
		log := n.(*Group)
		if c := stringAttr(t, log.Attrs, NXClass); c != ClassLog {
			t.Errorf("expected NXlog, got %s", c)
		}
		if typ := stringAttr(t, log.Attrs, TransformationType); typ != "translation" {
			t.Errorf("expected transformation attributes on the NXlog, got %s", typ)
		}
		dep, _ := geo.Get(DependsOn)
		if got := dep.(*Leaf).Value.Interface(); got != "/entry/instrument/monitor_4/transformations/trans_7/value" {
			t.Errorf("unexpected depends_on %v", got)
		}
	})
}

func TestDependsOnPathWarnsOnMultiple(t *testing.T) {
	buf := captureLogs(t)

	g := NewGroup(ClassAttr(ClassTransformations))
	g.Set("trans_3", LocationDataset(Transform{Type: Translation, Value: []float64{1}, Units: "m"}))
	g.Set("trans_4", LocationDataset(Transform{Type: Rotation, Value: []float64{1}, Units: "deg"}))

	got := DependsOnPath("/entry/sample/transformations/", g, false)
	if got != "/entry/sample/transformations/trans_3" {
		t.Errorf("expected the first transformation, got %s", got)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected a warning, got %q", buf.String())
	}

	buf.Reset()
	single := NewGroup(nil).Set("trans_5", LocationDataset(Transform{Type: Translation}))
	DependsOnPath("/p/", single, false)
	if buf.Len() != 0 {
		t.Errorf("expected no warning for a single transformation, got %q", buf.String())
	}
}

func TestRenderComponents(t *testing.T) {
	counter := ids.NewCounter(ids.TransformStart)
	opts := func(path string) RenderOptions {
		return RenderOptions{TransformPath: path, LengthUnit: "m", Transforms: counter}
	}

	chopper, err := Render(Component{
		Kind:     KindDiskChopper,
		Name:     "chopper_1",
		Position: r3.Vec{Z: -17},
		Chopper:  &ChopperParams{RotationSpeed: 14, Radius: 0.35, Slits: 1},
	}, opts(TransformPathFor(Entry, Instrument, "chopper_1")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := stringAttr(t, chopper.Attrs, NXClass); c != ClassDiskChopper {
		t.Errorf("unexpected class %s", c)
	}
	for _, name := range []string{Transformations, DependsOn, Name, "rotation_speed", "radius", "slits"} {
		if _, ok := chopper.Get(name); !ok {
			t.Errorf("chopper missing %s", name)
		}
	}
	speed, _ := chopper.Group("rotation_speed")
	if u := stringAttr(t, speed.Attrs, Units); u != "Hz" {
		t.Errorf("expected Hz, got %s", u)
	}

	slit, err := Render(Component{
		Kind:     KindSlit,
		Name:     "slit_0",
		Position: r3.Vec{Z: -5},
		Slit:     &SlitParams{XGap: 0.03, YGap: 0.025},
	}, opts(TransformPathFor(Entry, Instrument, "slit_0")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	xgap, ok := slit.Group("x_gap")
	if !ok {
		t.Fatal("expected x_gap NXlog")
	}
	if u := stringAttr(t, xgap.Attrs, Units); u != "m" {
		t.Errorf("expected gap unit m, got %s", u)
	}

	dep, _ := slit.Get(DependsOn)
	if got := dep.(*Leaf).Value.Interface(); got != "/entry/instrument/slit_0/transformations/trans_2" {
		t.Errorf("expected the shared counter to continue, got %v", got)
	}

	if _, err := Render(Component{Kind: Kind(42)}, opts("")); err == nil {
		t.Error("expected error for an unknown kind")
	}
	if _, err := Render(Component{Kind: KindSample}, RenderOptions{}); err == nil {
		t.Error("expected error without a counter")
	}
}

func TestEntryAndUsers(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	root := NewEntry(EntryInfo{ExperimentID: "p1234", Title: "My experiment", StartTime: start})

	entry, ok := root.Group(Entry)
	if !ok {
		t.Fatal("expected entry group")
	}
	if got := entry.Names(); !reflect.DeepEqual(got, []string{Instrument, "title", "experiment_identifier", "experiment_description", "start_time"}) {
		t.Errorf("unexpected entry children %v", got)
	}
	if _, ok := InstrumentOf(root); !ok {
		t.Error("expected instrument group")
	}
	st, _ := entry.Get("start_time")
	if got := st.(*Leaf).Value.Interface(); got != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected start time %v", got)
	}

	user := User([]UserField{{"name", "Jane"}, {"affiliation", "ESS"}})
	if got := user.Names(); !reflect.DeepEqual(got, []string{"name", "affiliation"}) {
		t.Errorf("unexpected user fields %v", got)
	}
	if UserName(0) != "user_0" {
		t.Errorf("unexpected user name %s", UserName(0))
	}
}

func smallBank(t *testing.T) *geometry.Bank {
	t.Helper()
	rec := models.BankRecord{
		A: []models.Point{
			{-535.94, -250, 3328.75},
			{-523.26, -250, 3408.75},
			{-224.49, -250, 3353.18},
			{-211.82, -250, 3433.19},
		},
		B: []models.Point{
			{-535.94, 250, 3328.75},
			{-523.26, 250, 3408.75},
			{-224.49, 250, 3353.18},
			{-211.82, 250, 3433.19},
		},
		NumTubes: 48,
	}
	p := geometry.LokiParams()
	p.StrawResolution = 4
	bank, err := geometry.NewBank(rec, 2, p)
	if err != nil {
		t.Fatalf("Failed to create bank: %v", err)
	}
	if _, err := bank.Build(); err != nil {
		t.Fatalf("Failed to build bank: %v", err)
	}
	return bank
}

func TestDetectorGeometry(t *testing.T) {
	bank := smallBank(t)
	counters := ids.NewCounters(1)
	layout, err := bank.Layout(counters)
	if err != nil {
		t.Fatalf("Failed to flatten bank: %v", err)
	}

	det, err := DetectorGeometry(bank, layout, RenderOptions{
		TransformPath: TransformPathFor(Entry, Instrument, DetectorName(2)),
		LengthUnit:    "m",
		Transforms:    counters.Transform,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c := stringAttr(t, det.Attrs, NXClass); c != ClassDetector {
		t.Errorf("unexpected class %s", c)
	}
	n, _ := det.Get(DetectorNumber)
	numbers := n.(*Leaf).Value
	if numbers.Len() != bank.NumberOfPixels() {
		t.Errorf("expected %d detector numbers, got %d", bank.NumberOfPixels(), numbers.Len())
	}
	for _, name := range []string{XPixelOffset, YPixelOffset, ZPixelOffset} {
		n, _ := det.Get(name)
		leaf := n.(*Leaf)
		if leaf.Value.Len() != numbers.Len() {
			t.Errorf("%s has %d values, expected %d", name, leaf.Value.Len(), numbers.Len())
		}
		if u := stringAttr(t, leaf.Attrs, Units); u != "m" {
			t.Errorf("%s: expected unit m, got %s", name, u)
		}
	}

	shape, ok := det.Group(PixelShape)
	if !ok {
		t.Fatal("expected pixel_shape group")
	}
	if c := stringAttr(t, shape.Attrs, NXClass); c != ClassCylindricalGeometry {
		t.Errorf("unexpected shape class %s", c)
	}
	v, _ := shape.Get(Vertices)
	if got := v.(*Leaf).Value.Shape; !reflect.DeepEqual(got, []int{3, 3}) {
		t.Errorf("unexpected vertices shape %v", got)
	}
	c, _ := shape.Get(Cylinders)
	if got := c.(*Leaf).Value.Ints; !reflect.DeepEqual(got, []int64{0, 1, 2}) {
		t.Errorf("unexpected cylinders %v", got)
	}

	dep, _ := det.Get(DependsOn)
	if got := dep.(*Leaf).Value.Interface(); got != "/entry/instrument/detector_2/transformations/trans_1" {
		t.Errorf("unexpected depends_on %v", got)
	}

	counts := models.IntMatrix(make([][]int64, numbers.Len()))
	AddDetectorData(det, counts, models.FloatArray([]float64{0, 1, 2}), "s")
	tof, ok := det.Group(TimeOfFlight)
	if !ok {
		t.Fatal("expected time_of_flight")
	}
	if u := stringAttr(t, tof.Attrs, Units); u != "s" {
		t.Errorf("expected tof unit s, got %s", u)
	}
	if _, ok := det.Group(Data); !ok {
		t.Error("expected data NXlog")
	}
}

func TestDetectorGeometryRejectsForeignLayout(t *testing.T) {
	bank := smallBank(t)
	layout := &geometry.Layout{BankID: 7}
	if _, err := DetectorGeometry(bank, layout, RenderOptions{Transforms: ids.NewCounter(1)}); err == nil {
		t.Error("expected error for a layout of another bank")
	}
}

func TestDocument(t *testing.T) {
	g := NewGroup(nil).Set("leaf", NewLeaf(models.FloatArray([]float64{1, 2, 3}), UnitsAttr("m")))
	doc := Document(g)

	if doc[AttributesKey] != nil {
		t.Errorf("expected nil attributes for the root, got %v", doc[AttributesKey])
	}
	children := doc[Values].(map[string]any)
	leaf := children["leaf"].(map[string]any)
	if !reflect.DeepEqual(leaf[Values], []any{1.0, 2.0, 3.0}) {
		t.Errorf("unexpected values %v", leaf[Values])
	}
	if !reflect.DeepEqual(leaf[AttributesKey], map[string]any{"units": "m"}) {
		t.Errorf("unexpected attributes %v", leaf[AttributesKey])
	}

	plain := Plain(g).(map[string]any)
	if !reflect.DeepEqual(plain["leaf"], []any{1.0, 2.0, 3.0}) {
		t.Errorf("unexpected plain value %v", plain["leaf"])
	}
}
