// Command pdftables extracts tables from PDF files.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notsnake/pdftables"
	"github.com/notsnake/pdftables/export"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pdftables",
	Short: "Find and export tables from PDF files",
	Long:  `pdftables locates tables in a PDF, preferring its tagged structure tree and falling back to a geometric reconstruction, and exports them as text, CSV, XLSX, or JSON.`,
}

var outputFormat string
var outputPath string

func init() {
	extractCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, csv, xlsx, or json")
	extractCmd.Flags().StringVarP(&outputPath, "out", "o", "", "output file path (defaults to stdout; required for xlsx)")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(infoCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract every table found in a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(args[0])
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <file.pdf>",
	Short: "Print a PDF's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(args[0])
	},
}

func runExtract(path string) error {
	doc, err := pdftables.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	found, err := pdftables.SearchTables(doc)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("pdftables: failed to create %s: %w", outputPath, err)
		}
		defer f.Close()
		out = f
	}

	switch outputFormat {
	case "text":
		for i, table := range found {
			if i > 0 {
				fmt.Fprintln(out)
			}
			table.Show(out)
		}
	case "csv":
		writer := csv.NewWriter(out)
		defer writer.Flush()
		for i, table := range found {
			if i > 0 {
				writer.Write(nil)
			}
			for _, row := range table.GetData() {
				if err := writer.Write(row); err != nil {
					return fmt.Errorf("pdftables: failed to write csv row: %w", err)
				}
			}
		}
	case "xlsx":
		if outputPath == "" {
			return fmt.Errorf("pdftables: --out is required for xlsx output")
		}
		if err := export.WriteXLSX(out, found); err != nil {
			return err
		}
	case "json":
		data := make([][][]string, len(found))
		for i, table := range found {
			data[i] = table.GetData()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("pdftables: failed to write json: %w", err)
		}
	default:
		return fmt.Errorf("pdftables: unknown format %q (want text, csv, xlsx, or json)", outputFormat)
	}

	fmt.Fprintf(os.Stderr, "found %d table(s) in %s\n", len(found), path)
	return nil
}

func runInfo(path string) error {
	doc, err := pdftables.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	info := doc.Info()
	fmt.Printf("Path:      %s\n", info.Path)
	fmt.Printf("Pages:     %d\n", info.PageCount)
	fmt.Printf("Version:   %s\n", info.Version)
	fmt.Printf("Title:     %s\n", info.Title)
	fmt.Printf("Author:    %s\n", info.Author)
	fmt.Printf("Subject:   %s\n", info.Subject)
	fmt.Printf("Keywords:  %s\n", info.Keywords)
	fmt.Printf("Creator:   %s\n", info.Creator)
	fmt.Printf("Producer:  %s\n", info.Producer)
	fmt.Printf("Encrypted: %v\n", info.Encrypted)
	return nil
}
