package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nexusgeometry/pkg/config"
	"nexusgeometry/pkg/instrument"
)

var (
	outputFile string
	backend    string
	csvFile    string
	force      bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the instrument geometry and write it to a store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if outputFile != "" {
			cfg.Output.File = outputFile
		}
		if backend != "" {
			cfg.Output.Backend = backend
		}
		if csvFile != "" {
			cfg.Output.CSVFile = csvFile
		}
		if force {
			if err := os.RemoveAll(cfg.Output.File); err != nil {
				return fmt.Errorf("remove %s: %w", cfg.Output.File, err)
			}
		}

		fmt.Println("================================")
		fmt.Println("NEUTRON INSTRUMENT GEOMETRY GENERATOR")
		fmt.Println("================================")

		generator := instrument.NewGenerator(cfg)
		startTime := time.Now()
		if err := generator.Process(); err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		processingTime := time.Since(startTime)

		fmt.Printf("\nGeometry generated successfully in %.2f seconds!\n", processingTime.Seconds())
		fmt.Printf("Output saved to: %s (%s)\n\n", cfg.Output.File, cfg.Output.Backend)
		printSummaries(generator.GetSummaries(), generator.GetAudit())
		return nil
	},
}

func printSummaries(summaries []instrument.BankSummary, audit instrument.AuditReport) {
	fmt.Printf("Detector banks:\n")
	fmt.Printf("=======================================\n")
	for _, s := range summaries {
		fmt.Printf("detector_%d  %-10s tubes=%-4d pixels=%-7d ids=%d..%d\n",
			s.BankID, s.Alignment, s.Tubes, s.Pixels, s.FirstID, s.LastID)
		fmt.Printf("            centroid=(%.4f, %.4f, %.4f) spread=(%.4f, %.4f, %.4f)\n",
			s.Centroid.X, s.Centroid.Y, s.Centroid.Z, s.Spread.X, s.Spread.Y, s.Spread.Z)
	}
	fmt.Printf("\nDetector numbers: %d contiguous ids from %d to %d\n", audit.Count, audit.First, audit.Last)
}

func init() {
	buildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output store path (overrides config)")
	buildCmd.Flags().StringVarP(&backend, "backend", "b", "", "Store backend: sqlite or badger (overrides config)")
	buildCmd.Flags().StringVar(&csvFile, "csv", "", "Also write the per-pixel id table to this CSV file")
	buildCmd.Flags().BoolVarP(&force, "force", "f", false, "Remove an existing output before writing")
	rootCmd.AddCommand(buildCmd)
}
