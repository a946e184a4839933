package nexus

import (
	"log/slog"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/ids"
)

// Keys of the values/attributes document layout.
const (
	Values        = "values"
	AttributesKey = "attributes"
)

// Dataset, group and attribute names.
const (
	DependsOn          = "depends_on"
	Entry              = "entry"
	Instrument         = "instrument"
	Name               = "name"
	NXClass            = "NX_class"
	NXLogValue         = "value"
	Sample             = "sample"
	Source             = "source"
	Time               = "time"
	TransformationType = "transformation_type"
	Transformations    = "transformations"
	Units              = "units"
	Vector             = "vector"
)

// NeXus base classes.
const (
	ClassEntry               = "NXentry"
	ClassSample              = "NXsample"
	ClassInstrument          = "NXinstrument"
	ClassDetector            = "NXdetector"
	ClassSource              = "NXsource"
	ClassCylindricalGeometry = "NXcylindrical_geometry"
	ClassTransformations     = "NXtransformations"
	ClassDiskChopper         = "NXdisk_chopper"
	ClassLog                 = "NXlog"
	ClassMonitor             = "NXmonitor"
	ClassSlit                = "NXslit"
	ClassUser                = "NXuser"
)

// TransformType is the transformation_type attribute of a transformation.
type TransformType string

const (
	Translation TransformType = "translation"
	Rotation    TransformType = "rotation"
)

// DefaultTimeUnit is the unit of synthetic NXlog timestamps.
const DefaultTimeUnit = "ns"

// ClassAttr returns the NX_class attribute for class.
func ClassAttr(class string) models.Attributes {
	return models.Attributes{NXClass: models.StringScalar(class)}
}

// UnitsAttr returns the units attribute.
func UnitsAttr(units string) models.Attributes {
	return models.Attributes{Units: models.StringScalar(units)}
}

// Field wraps a value and its attributes into a leaf.
func Field(v models.Value, attrs models.Attributes) *Leaf {
	return NewLeaf(v, attrs)
}

// Transform describes a single translation or rotation.
type Transform struct {
	Type      TransformType
	Value     []float64
	Vector    r3.Vec
	Units     string
	DependsOn string
}

// LocationDataset renders the transformation dataset itself.
func LocationDataset(t Transform) *Leaf {
	dependsOn := t.DependsOn
	if dependsOn == "" {
		dependsOn = "."
	}
	return NewLeaf(models.FloatArray(t.Value), models.Attributes{
		Units:              models.StringScalar(t.Units),
		TransformationType: models.StringScalar(string(t.Type)),
		DependsOn:          models.StringScalar(dependsOn),
		Vector:             models.FloatArray([]float64{t.Vector.X, t.Vector.Y, t.Vector.Z}),
	})
}

// TransformationGroup renders an NXtransformations group holding one
// transformation named trans_<n>, n drawn from counter. With asLog the
// transformation is wrapped in an NXlog group.
func TransformationGroup(t Transform, asLog bool, counter *ids.Counter) *Group {
	name := "trans_" + strconv.FormatInt(counter.Next(), 10)
	var node Node = LocationDataset(t)
	if asLog {
		node = NXLog(node.(*Leaf), nil, DefaultTimeUnit)
	}
	return NewGroup(ClassAttr(ClassTransformations)).Set(name, node)
}

// TranslationGroup is TransformationGroup for a translation.
func TranslationGroup(value []float64, vector r3.Vec, units string, asLog bool, counter *ids.Counter) *Group {
	return TransformationGroup(Transform{Type: Translation, Value: value, Vector: vector, Units: units}, asLog, counter)
}

// RotationGroup is TransformationGroup for a rotation.
func RotationGroup(value []float64, vector r3.Vec, units string, asLog bool, counter *ids.Counter) *Group {
	return TransformationGroup(Transform{Type: Rotation, Value: value, Vector: vector, Units: units}, asLog, counter)
}

// NXLog wraps data with a timestamp array. Without explicit times the
// timestamps count the rows of data, or are a single 0 for a scalar. The
// attributes of data move to the NXlog group.
func NXLog(data *Leaf, times *models.Value, timeUnit string) *Group {
	if data == nil {
		data = NewLeaf(models.FloatArray(nil), nil)
	}
	if times == nil {
		t := syntheticTimes(data.Value)
		times = &t
	}

	attrs := ClassAttr(ClassLog)
	for k, v := range data.Attrs {
		attrs[k] = v
	}

	g := NewGroup(attrs)
	g.Set(NXLogValue, NewLeaf(data.Value, models.Attributes{}))
	g.Set(Time, NewLeaf(*times, UnitsAttr(timeUnit)))
	return g
}

func syntheticTimes(v models.Value) models.Value {
	if v.IsScalar() {
		return models.IntArray([]int64{0})
	}
	n := v.Shape[0]
	times := make([]int64, n)
	for i := range times {
		times[i] = int64(i)
	}
	return models.IntArray(times)
}

// DependsOnPath builds the depends_on target for a transformations group.
// Only the first transformation is referenced; a group holding more than
// one is reported and the rest are ignored.
func DependsOnPath(transformPath string, transformations *Group, asLog bool) string {
	names := transformations.Names()
	if len(names) == 0 {
		return transformPath
	}
	if len(names) > 1 {
		slog.Warn("Only supply one dependency for a transformation, only the first element will be used",
			slog.String("path", transformPath),
			slog.Any("transformations", names))
	}
	path := transformPath + names[0]
	if asLog {
		path += "/" + NXLogValue
	}
	return path
}

// Placement locates a component in the instrument frame.
type Placement struct {
	// Position is the component position in output units
	Position r3.Vec

	// TransformPath is the absolute path of the transformations group,
	// ending in a slash. When empty no depends_on is written
	TransformPath string

	// Name is written as a name dataset when not empty
	Name string

	// AsLog writes the translation as an NXlog
	AsLog bool

	Units string
}

// AddTransformations adds the transformations group, the depends_on
// dataset and the optional name to geo. The position is written as a unit
// direction and a distance; the origin points along +z with distance 0.
func AddTransformations(geo *Group, p Placement, counter *ids.Counter) *Group {
	distance := r3.Norm(p.Position)
	direction := r3.Vec{Z: 1}
	if distance != 0 {
		direction = r3.Vec{X: p.Position.X / distance, Y: p.Position.Y / distance, Z: p.Position.Z / distance}
	}

	transformations := TranslationGroup([]float64{distance}, direction, p.Units, p.AsLog, counter)
	geo.Set(Transformations, transformations)

	if p.TransformPath != "" {
		geo.Set(DependsOn, NewLeaf(models.StringScalar(DependsOnPath(p.TransformPath, transformations, p.AsLog)), nil))
	}
	if p.Name != "" {
		geo.Set(Name, NewLeaf(models.StringArray([]string{p.Name}), nil))
	}
	return geo
}
