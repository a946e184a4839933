package nexus

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/ids"
)

// Kind tags a fixed-position instrument component.
type Kind int

const (
	KindSource Kind = iota
	KindSample
	KindMonitor
	KindDiskChopper
	KindSlit
)

var kindClasses = map[Kind]string{
	KindSource:      ClassSource,
	KindSample:      ClassSample,
	KindMonitor:     ClassMonitor,
	KindDiskChopper: ClassDiskChopper,
	KindSlit:        ClassSlit,
}

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindSample:
		return "sample"
	case KindMonitor:
		return "monitor"
	case KindDiskChopper:
		return "disk_chopper"
	case KindSlit:
		return "slit"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Class returns the NeXus base class of the kind.
func (k Kind) Class() string { return kindClasses[k] }

// ChopperParams are the optional disk chopper fields.
type ChopperParams struct {
	// RotationSpeed in Hz
	RotationSpeed float64

	// Radius in output length units
	Radius float64

	Slits int64
}

// SlitParams are the optional slit openings, in output length units.
type SlitParams struct {
	XGap float64
	YGap float64
}

// Component is a fixed-position instrument component. Only the fields its
// kind needs are read: Chopper for disk choppers, Slit for slits.
type Component struct {
	Kind     Kind
	Name     string
	Position r3.Vec

	Chopper *ChopperParams
	Slit    *SlitParams
}

// RenderOptions control how a component or a detector is placed.
type RenderOptions struct {
	// TransformPath is the absolute path of the transformations group
	TransformPath string

	// AsLog writes the translation as an NXlog
	AsLog bool

	LengthUnit string

	// Transforms numbers the trans_N datasets
	Transforms *ids.Counter
}

// TransformPathFor returns the absolute transformations path for a group at
// the slash separated location parts.
func TransformPathFor(parts ...string) string {
	path := ""
	for _, p := range parts {
		path += "/" + p
	}
	return path + "/" + Transformations + "/"
}

// Render produces the component subtree.
func Render(c Component, opts RenderOptions) (*Group, error) {
	class, ok := kindClasses[c.Kind]
	if !ok {
		return nil, fmt.Errorf("component %q: unknown kind %s", c.Name, c.Kind)
	}
	if opts.Transforms == nil {
		return nil, fmt.Errorf("component %q: no transformation counter", c.Name)
	}

	geo := NewGroup(ClassAttr(class))
	AddTransformations(geo, Placement{
		Position:      c.Position,
		TransformPath: opts.TransformPath,
		Name:          c.Name,
		AsLog:         opts.AsLog,
		Units:         opts.LengthUnit,
	}, opts.Transforms)

	switch c.Kind {
	case KindDiskChopper:
		if c.Chopper != nil {
			speed := NewLeaf(models.FloatScalar(c.Chopper.RotationSpeed), UnitsAttr("Hz"))
			geo.Set("rotation_speed", NXLog(speed, nil, DefaultTimeUnit))
			geo.Set("radius", NewLeaf(models.FloatScalar(c.Chopper.Radius), UnitsAttr(opts.LengthUnit)))
			geo.Set("slits", NewLeaf(models.IntScalar(c.Chopper.Slits), nil))
		}
	case KindSlit:
		if c.Slit != nil {
			x := NewLeaf(models.FloatScalar(c.Slit.XGap), UnitsAttr(opts.LengthUnit))
			y := NewLeaf(models.FloatScalar(c.Slit.YGap), UnitsAttr(opts.LengthUnit))
			geo.Set("x_gap", NXLog(x, nil, DefaultTimeUnit))
			geo.Set("y_gap", NXLog(y, nil, DefaultTimeUnit))
		}
	}
	return geo, nil
}

// AddMonitorData attaches monitor counts as an NXlog data group.
func AddMonitorData(monitor *Group, counts models.Value) {
	monitor.Set("data", NXLog(NewLeaf(counts, nil), nil, DefaultTimeUnit))
}

// UserField is one key/value pair of an NXuser.
type UserField struct {
	Key   string
	Value string
}

// User renders an NXuser group with one leaf per field, in order.
func User(fields []UserField) *Group {
	g := NewGroup(ClassAttr(ClassUser))
	for _, f := range fields {
		g.Set(f.Key, NewLeaf(models.StringScalar(f.Value), nil))
	}
	return g
}

// UserName is the entry child name of the n-th user.
func UserName(n int) string { return "user_" + strconv.Itoa(n) }
