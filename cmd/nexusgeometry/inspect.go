package main

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/nexus"
	"nexusgeometry/pkg/treefile"
)

var asJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [store] [dot.path]",
	Short: "Print a stored tree or one of its subtrees",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := treefile.Load(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = loader.Close() }()

		dotPath := ""
		if len(args) == 2 {
			dotPath = args[1]
		}

		if asJSON {
			out, err := loader.JSON(dotPath)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}

		n, err := loader.Tree(dotPath)
		if err != nil {
			return err
		}
		name := dotPath
		if name == "" {
			name = "/"
		}
		printNode(name, n, 0)
		return nil
	},
}

func printNode(name string, n nexus.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case *nexus.Leaf:
		fmt.Printf("%s%s = %s\n", indent, name, v.Value)
	case *nexus.Group:
		fmt.Printf("%s%s/\n", indent, name)
	}
	printAttributes(n.Attributes(), indent+"  ")
	if g, ok := n.(*nexus.Group); ok {
		_ = g.Each(func(child string, c nexus.Node) error {
			printNode(child, c, depth+1)
			return nil
		})
	}
}

func printAttributes(attrs models.Attributes, indent string) {
	for _, k := range attrs.Keys() {
		fmt.Printf("%s@%s = %s\n", indent, k, attrs[k])
	}
}

var queryCmd = &cobra.Command{
	Use:   "query [store] [jsonpath]",
	Short: "Evaluate a JSONPath expression against a stored tree",
	Example: `  nexusgeometry query loki.db '$.entry.instrument.*.depends_on'
  nexusgeometry query loki.db '$.entry.instrument.detector_0.detector_number[0]'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := treefile.Load(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = loader.Close() }()

		results, err := loader.Query(args[1])
		if err != nil {
			return err
		}
		fmt.Println(oj.JSON(results, &oj.Options{Indent: 2, Sort: true}))
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&asJSON, "json", false, "Print the values/attributes document as JSON")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(queryCmd)
}
