package nexus

import (
	"time"

	"nexusgeometry/internal/models"
)

// EntryInfo describes the experiment the file belongs to.
type EntryInfo struct {
	ExperimentID string
	Title        string
	Description  string
	StartTime    time.Time
}

// NewEntry returns the root of the file: a group holding the NXentry with
// an empty NXinstrument and the experiment metadata.
func NewEntry(info EntryInfo) *Group {
	entry := NewGroup(ClassAttr(ClassEntry))
	entry.Set(Instrument, NewGroup(ClassAttr(ClassInstrument)))
	entry.Set("title", NewLeaf(models.StringScalar(info.Title), nil))
	entry.Set("experiment_identifier", NewLeaf(models.StringScalar(info.ExperimentID), nil))
	entry.Set("experiment_description", NewLeaf(models.StringScalar(info.Description), nil))
	entry.Set("start_time", NewLeaf(models.StringScalar(info.StartTime.Format(time.RFC3339Nano)), nil))

	return NewGroup(nil).Set(Entry, entry)
}

// InstrumentOf returns entry/instrument below root.
func InstrumentOf(root *Group) (*Group, bool) {
	entry, ok := root.Group(Entry)
	if !ok {
		return nil, false
	}
	return entry.Group(Instrument)
}
