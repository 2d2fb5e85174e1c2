package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/ksef-cost-sync/internal/fa"
	"github.com/rezonia/ksef-cost-sync/internal/model"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file.xml>...",
	Short: "Decode FA documents to JSON without touching the database",
	Long: `Decode one or more FA-schema XML files and print the normalized
invoice and line items as JSON. Nothing is persisted.

Examples:
  ksef-cost-sync decode invoice.xml
  ksef-cost-sync decode *.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

type decodeResult struct {
	File    string                  `json:"file"`
	Invoice *model.CostInvoice      `json:"invoice,omitempty"`
	Items   []model.CostInvoiceItem `json:"items,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	results := make([]decodeResult, 0, len(args))
	failed := 0

	for _, path := range args {
		res := decodeResult{File: path}
		doc, err := os.ReadFile(path)
		if err != nil {
			res.Error = err.Error()
		} else if inv, items, derr := fa.Decode(doc); derr != nil {
			res.Error = derr.Error()
		} else {
			res.Invoice = inv
			res.Items = items
		}
		if res.Error != "" {
			failed++
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		if err := enc.Encode(results[0]); err != nil {
			return err
		}
	} else if err := enc.Encode(results); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to decode", failed, len(args))
	}
	return nil
}
