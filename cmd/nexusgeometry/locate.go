package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/pkg/config"
	"nexusgeometry/pkg/instrument"
)

var locateCmd = &cobra.Command{
	Use:   "locate [x] [y] [z]",
	Short: "Find the pixel closest to a point in the instrument frame",
	Long: `locate builds the configured geometry in memory and reports the detector
number of the pixel closest to the point, given in output length units.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var coords [3]float64
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("coordinate %q: %w", a, err)
			}
			coords[i] = v
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		generator := instrument.NewGenerator(cfg)
		if err := generator.Assemble(); err != nil {
			return err
		}
		locator, err := generator.Locator()
		if err != nil {
			return err
		}

		m := locator.Nearest(r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]})
		fmt.Printf("detector_%d pixel %d at (%.5f, %.5f, %.5f), distance %.5f %s\n",
			m.BankID, m.DetectorNumber, m.Position.X, m.Position.Y, m.Position.Z, m.Distance, cfg.Detector.LengthUnit)
		return nil
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default LoKI configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			return err
		}
		fmt.Printf("Default configuration written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(initConfigCmd)
}
