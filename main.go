package main

import (
	"fmt"
	"os"

	"github.com/zalepa/unidash/cmd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "web":
		cmd.Web(os.Args[2:])
	case "viz":
		cmd.Viz(os.Args[2:])
	case "report":
		cmd.Report(os.Args[2:])
	case "export":
		cmd.Export(os.Args[2:])
	case "names":
		cmd.Names(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: unidash <command>

Commands:
  web      Serve the interactive metrics dashboard
  viz      Show one metric in the terminal or as a PDF
  report   Write a PDF covering every metric
  export   Write the filtered table of one metric as CSV or XLSX
  names    Audit institution name normalization
`)
}
