// Command vptcore is the script subprocess entry point (spec §6 "CLI
// surface (scripts)"): goto, fullzap, and validate, each loading the
// navigation tree for a user interface, driving it against one selected
// device, and reporting through the SCRIPT_SUCCESS/SCRIPT_REPORT_URL/
// SCRIPT_LOGS_URL stdout markers. Grounded on the teacher's
// cmd/kilroy/main.go dispatch shape: a flat switch over os.Args[1], each
// subcommand parsing its own arguments independently.
package main

import (
	"fmt"
	"os"

	"github.com/virtualpytest/core/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("vptcore %s\n", version.Version)
		os.Exit(0)
	case "goto":
		runGoto(os.Args[2:])
	case "fullzap":
		runFullzap(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  vptcore --version")
	fmt.Fprintln(os.Stderr, "  vptcore goto [userinterface_name] --node <label> [--host <name>] [--device <id>]")
	fmt.Fprintln(os.Stderr, "  vptcore fullzap [userinterface_name] --action <name> [--audio-analysis] [--max-iteration <n>] [--host <name>] [--device <id>]")
	fmt.Fprintln(os.Stderr, "  vptcore validate [userinterface_name] [--host <name>] [--device <id>]")
}
