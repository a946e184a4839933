// Package instrument runs the geometry generation pipeline: banks are built
// from their calibration records, flattened into pixel layouts, assembled
// with the fixed components into one NeXus tree and written to a store.
package instrument

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/config"
	"nexusgeometry/pkg/geometry"
	"nexusgeometry/pkg/ids"
	"nexusgeometry/pkg/nexus"
	"nexusgeometry/pkg/store"
	"nexusgeometry/pkg/treefile"
)

// Generator handles one generation run.
//
// The run consists of several steps:
// 1. Building and validating the detector banks
// 2. Flattening every bank into a pixel layout
// 3. Auditing the detector numbers
// 4. Assembling the instrument tree
// 5. Attaching measured data when configured
// 6. Writing the tree to the output store
// 7. Writing the CSV pixel table when configured
type Generator struct {
	cfg    *config.Config
	params geometry.Params

	// counters are reset at the start of every run
	counters *ids.Counters

	banks   []*geometry.Bank
	layouts []*geometry.Layout
	tree    *nexus.Group

	summaries []BankSummary
	audit     AuditReport

	// now stamps the entry start time
	now func() time.Time
}

// NewGenerator creates a generator for a validated configuration.
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		cfg:      cfg,
		params:   cfg.DetectorParams(),
		counters: ids.NewCounters(cfg.Detector.PixelIDStart),
		now:      time.Now,
	}
}

// Assemble runs the in-memory steps and leaves the tree ready to write.
func (g *Generator) Assemble() error {
	if err := g.cfg.Validate(); err != nil {
		return err
	}
	g.counters.Reset()
	g.banks, g.layouts, g.tree, g.summaries = nil, nil, nil, nil

	slog.Info("Step 1: Building detector banks...")
	if err := g.buildBanks(); err != nil {
		return fmt.Errorf("failed to build banks: %w", err)
	}

	slog.Info("Step 2: Flattening pixel layouts...")
	if err := g.flattenBanks(); err != nil {
		return fmt.Errorf("failed to flatten banks: %w", err)
	}

	slog.Info("Step 3: Auditing detector numbers...")
	audit, err := AuditDetectorNumbers(g.layouts, g.cfg.Detector.PixelIDStart)
	if err != nil {
		return err
	}
	g.audit = audit

	slog.Info("Step 4: Assembling instrument tree...")
	if err := g.assembleTree(); err != nil {
		return fmt.Errorf("failed to assemble tree: %w", err)
	}

	if g.cfg.Data.InputFile != "" {
		slog.Info("Step 5: Attaching measured data...")
		if err := g.attachData(); err != nil {
			return fmt.Errorf("failed to attach data: %w", err)
		}
	}

	g.summaries = Summarize(g.banks, g.layouts)
	return nil
}

// Process runs the complete pipeline including the output files.
func (g *Generator) Process() error {
	if err := g.Assemble(); err != nil {
		return err
	}

	slog.Info("Step 6: Writing output store...",
		slog.String("file", g.cfg.Output.File),
		slog.String("backend", g.cfg.Output.Backend))
	if err := g.writeStore(); err != nil {
		return fmt.Errorf("failed to write %s: %w", g.cfg.Output.File, err)
	}

	if g.cfg.Output.CSVFile != "" {
		slog.Info("Step 7: Writing pixel table...", slog.String("file", g.cfg.Output.CSVFile))
		if err := WriteCSV(g.cfg.Output.CSVFile, g.layouts); err != nil {
			return fmt.Errorf("failed to write %s: %w", g.cfg.Output.CSVFile, err)
		}
	}
	return nil
}

func (g *Generator) buildBanks() error {
	for _, id := range g.cfg.BankIDs() {
		bank, err := geometry.NewBank(g.cfg.Banks[id], id, g.params)
		if err != nil {
			return err
		}
		if _, err := bank.Build(); err != nil {
			return err
		}
		slog.Debug("Bank built",
			slog.Int("bank", id),
			slog.String("alignment", bank.Alignment().String()),
			slog.Int("tubes", bank.NumberOfTubes()))
		g.banks = append(g.banks, bank)
	}
	return nil
}

func (g *Generator) flattenBanks() error {
	for _, bank := range g.banks {
		layout, err := bank.Layout(g.counters)
		if err != nil {
			return err
		}
		if layout.Len() != bank.NumberOfPixels() {
			return fmt.Errorf("bank %d: layout holds %d pixels, expected %d", bank.ID(), layout.Len(), bank.NumberOfPixels())
		}
		g.layouts = append(g.layouts, layout)
	}
	return nil
}

func (g *Generator) scaled(p models.Point) r3.Vec {
	s := g.params.ScaleFactor
	return r3.Vec{X: p[0] * s, Y: p[1] * s, Z: p[2] * s}
}

func (g *Generator) renderOptions(asLog bool, parts ...string) nexus.RenderOptions {
	return nexus.RenderOptions{
		TransformPath: nexus.TransformPathFor(parts...),
		AsLog:         asLog,
		LengthUnit:    g.cfg.Detector.LengthUnit,
		Transforms:    g.counters.Transform,
	}
}

func (g *Generator) assembleTree() error {
	root := nexus.NewEntry(nexus.EntryInfo{
		ExperimentID: g.cfg.Entry.ExperimentID,
		Title:        g.cfg.Entry.Title,
		Description:  g.cfg.Entry.Description,
		StartTime:    g.now(),
	})
	entry, _ := root.Group(nexus.Entry)
	instrument, _ := entry.Group(nexus.Instrument)

	banksAsLog := map[int]bool{}
	for _, id := range g.cfg.Transforms.BanksAsLog {
		banksAsLog[id] = true
	}
	for i, bank := range g.banks {
		name := nexus.DetectorName(bank.ID())
		det, err := nexus.DetectorGeometry(bank, g.layouts[i],
			g.renderOptions(banksAsLog[bank.ID()], nexus.Entry, nexus.Instrument, name))
		if err != nil {
			return err
		}
		instrument.Set(name, det)
		slog.Debug("Detector done", slog.String("detector", name))
	}

	source, err := nexus.Render(nexus.Component{
		Kind:     nexus.KindSource,
		Name:     g.cfg.Source.Name,
		Position: g.scaled(g.cfg.Source.Location),
	}, g.renderOptions(false, nexus.Entry, nexus.Instrument, nexus.Source))
	if err != nil {
		return err
	}
	instrument.Set(nexus.Source, source)

	sample, err := nexus.Render(nexus.Component{
		Kind:     nexus.KindSample,
		Name:     g.cfg.Sample.Name,
		Position: g.scaled(g.cfg.Sample.Location),
	}, g.renderOptions(false, nexus.Entry, nexus.Sample))
	if err != nil {
		return err
	}
	entry.Set(nexus.Sample, sample)

	for _, c := range g.cfg.Choppers {
		chopper, err := nexus.Render(nexus.Component{
			Kind:     nexus.KindDiskChopper,
			Name:     c.Name,
			Position: g.scaled(c.Location),
			Chopper: &nexus.ChopperParams{
				RotationSpeed: c.RotationSpeed,
				Radius:        c.DiskRadius * g.params.ScaleFactor,
				Slits:         c.Slits,
			},
		}, g.renderOptions(false, nexus.Entry, nexus.Instrument, c.Name))
		if err != nil {
			return err
		}
		instrument.Set(c.Name, chopper)
	}

	monitorsAsLog := map[string]bool{}
	for _, name := range g.cfg.Transforms.MonitorsAsLog {
		monitorsAsLog[name] = true
	}
	for _, m := range g.cfg.Monitors {
		monitor, err := nexus.Render(nexus.Component{
			Kind:     nexus.KindMonitor,
			Name:     m.Name,
			Position: g.scaled(m.Location),
		}, g.renderOptions(monitorsAsLog[m.Name], nexus.Entry, nexus.Instrument, m.Name))
		if err != nil {
			return err
		}
		instrument.Set(m.Name, monitor)
	}

	for _, s := range g.cfg.Slits {
		slit, err := nexus.Render(nexus.Component{
			Kind:     nexus.KindSlit,
			Name:     s.Name,
			Position: g.scaled(s.Location),
			Slit: &nexus.SlitParams{
				XGap: s.XGap * g.params.ScaleFactor,
				YGap: s.YGap * g.params.ScaleFactor,
			},
		}, g.renderOptions(false, nexus.Entry, nexus.Instrument, s.Name))
		if err != nil {
			return err
		}
		instrument.Set(s.Name, slit)
	}

	for i, u := range g.cfg.Users {
		entry.Set(nexus.UserName(i), nexus.User(u))
	}

	g.tree = root
	return nil
}

// attachData copies measured counts onto the detectors and monitors. A
// missing input store is reported and the run continues without data.
func (g *Generator) attachData() error {
	loader, err := treefile.Load(g.cfg.Data.InputFile)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("Input data store not found, continuing without data",
			slog.String("file", g.cfg.Data.InputFile))
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = loader.Close() }()

	instrument, _ := nexus.InstrumentOf(g.tree)

	if path := g.cfg.Data.DetectorCounts; path != "" {
		counts, err := loader.GetData(path)
		if err != nil {
			return fmt.Errorf("detector counts %s: %w", path, err)
		}
		var tof models.Value
		if g.cfg.Data.TimeOfFlight != "" {
			if tof, err = loader.GetData(g.cfg.Data.TimeOfFlight); err != nil {
				return fmt.Errorf("time of flight %s: %w", g.cfg.Data.TimeOfFlight, err)
			}
		} else {
			tof = models.FloatArray(nil)
		}

		start := 0
		for _, bank := range g.banks {
			end := start + bank.NumberOfPixels()
			rows, err := counts.Rows(start, end)
			if err != nil {
				return fmt.Errorf("bank %d: %w", bank.ID(), err)
			}
			det, _ := instrument.Group(nexus.DetectorName(bank.ID()))
			nexus.AddDetectorData(det, rows, tof, g.cfg.Data.TimeOfFlightUnit)
			start = end
		}
	}

	if path := g.cfg.Data.MonitorCounts; path != "" {
		counts, err := loader.GetData(path)
		if err != nil {
			return fmt.Errorf("monitor counts %s: %w", path, err)
		}
		for _, m := range g.cfg.Monitors {
			monitor, _ := instrument.Group(m.Name)
			nexus.AddMonitorData(monitor, counts)
		}
	}
	return nil
}

func (g *Generator) writeStore() error {
	s, err := treefile.CreateStore(treefile.Backend(g.cfg.Output.Backend), g.cfg.Output.File)
	if err != nil {
		return err
	}
	builder := treefile.NewBuilder(s, g.cfg.Output.CompressThreshold)
	if err := builder.Write(g.tree); err != nil {
		_ = s.Close()
		return err
	}
	groups, datasets := builder.Counts()
	slog.Info("Output written", slog.Int("groups", groups), slog.Int("datasets", datasets))
	return s.Close()
}

// Tree returns the assembled instrument tree.
func (g *Generator) Tree() *nexus.Group { return g.tree }

func (g *Generator) Banks() []*geometry.Bank { return g.banks }

func (g *Generator) Layouts() []*geometry.Layout { return g.layouts }

// GetSummaries returns the per-bank summaries of the last run.
func (g *Generator) GetSummaries() []BankSummary { return g.summaries }

// GetAudit returns the detector number audit of the last run.
func (g *Generator) GetAudit() AuditReport { return g.audit }

// Translations maps each built bank id to its translation.
func (g *Generator) Translations() map[int]r3.Vec {
	translations := make(map[int]r3.Vec, len(g.banks))
	for _, b := range g.banks {
		translations[b.ID()] = b.Translation()
	}
	return translations
}

// Locator indexes the world positions of every pixel of the last run.
func (g *Generator) Locator() (*geometry.Locator, error) {
	return geometry.NewLocator(g.layouts, g.Translations())
}
