package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/hive-corporation/iocscan/internal/adapter/exporter"
	"github.com/hive-corporation/iocscan/internal/core/domain"
)

func main() {
	targetFile := flag.String("file", "", "Report file to scan (default: stdin)")
	format := flag.String("format", "text", "Output format: text, json, cef, stix")
	sep := flag.String("sep", "", "Separator between values in text output (default: newline)")
	flag.Parse()

	var input io.Reader = os.Stdin
	if *targetFile != "" {
		file, err := os.Open(*targetFile)
		if err != nil {
			log.Fatalf("❌ error reading file: %v", err)
		}
		defer file.Close()
		input = file
	}

	data, err := io.ReadAll(input)
	if err != nil {
		log.Fatalf("❌ error reading input: %v", err)
	}

	iocs := domain.Detect(string(data))

	switch *format {
	case "text":
		out := exporter.ExportText(iocs, *sep)
		if out != "" {
			fmt.Println(out)
		}

	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if iocs == nil {
			iocs = []domain.IOC{}
		}
		if err := encoder.Encode(iocs); err != nil {
			log.Fatalf("❌ error encoding JSON: %v", err)
		}

	case "cef":
		fmt.Print(exporter.NewCEFExporter().Export(uuid.NewString(), iocs))

	case "stix":
		bundle, err := exporter.NewSTIXExporter().Export(iocs)
		if err != nil {
			log.Fatalf("❌ error building STIX bundle: %v", err)
		}
		fmt.Println(bundle)

	default:
		log.Fatalf("❌ unsupported format %q (use text, json, cef or stix)", *format)
	}

	if len(iocs) == 0 {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "🔍 %d indicators extracted\n", len(iocs))
}
