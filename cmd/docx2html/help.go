package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert a .docx or .md document to HTML")
	fmt.Fprintln(w, "  edit       Save an edited HTML file over a converted document")
	fmt.Fprintln(w, "  export     Export a converted document as standalone HTML or Markdown")
	fmt.Fprintln(w, "  pdf        Print a converted document to PDF")
	fmt.Fprintln(w, "  list       List converted documents")
	fmt.Fprintln(w, "  serve      Run the web interface")
	fmt.Fprintln(w, "  doctor     Check the environment")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'docx2html help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --media-root <dir>    Directory for uploads and output")
	fmt.Fprintln(w, "      --database <url>      sqlite://path or postgres://...")
	fmt.Fprintln(w, "      --log-level <s>       debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      text, json")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html convert <file.docx|file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert a document to normalized HTML plus an archive of its images.")
	fmt.Fprintln(w, "Prints the job ID used by edit, export and pdf.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --job-id <id>         Job ID (default: random UUID)")
	fmt.Fprintln(w, "      --style-map <path>    File with extra style map rules")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printEditUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html edit <job-id> <file.html> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Normalize an edited HTML file and save it as the job's document.")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html export <job-id> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export a converted document.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -f, --format <s>          html (standalone page) or md")
	fmt.Fprintln(w, "  -o, --output <path>       Output file (default: <name>.<ext>)")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printPDFUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html pdf <job-id> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print a converted document to PDF with headless Chrome.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file (default: <name>.pdf)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Generation timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --no-highlight        Disable code highlighting")
	fmt.Fprintln(w, "      --chroma-style <s>    Highlighting style (default: friendly)")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printListUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html list [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List converted documents, newest first.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --query <s>           Filter by name")
	fmt.Fprintln(w, "      --sort <key>          uploaded_at or original_name, - for descending")
	fmt.Fprintln(w, "      --limit <n>           Maximum rows")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the web interface: upload, review, edit and download documents.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default: 127.0.0.1:8000)")
	fmt.Fprintln(w, "  -w, --workers <n>         PDF browser pool size (0 = auto)")
	fmt.Fprintln(w, "      --static-root <dir>   Directory served under /static/")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, the media root and the database.")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	usages := map[string]func(io.Writer){
		"convert":    printConvertUsage,
		"edit":       printEditUsage,
		"export":     printExportUsage,
		"pdf":        printPDFUsage,
		"list":       printListUsage,
		"serve":      printServeUsage,
		"doctor":     printDoctorUsage,
		"completion": printCompletionUsage,
	}
	switch args[0] {
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: docx2html version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: docx2html help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		usage, ok := usages[args[0]]
		if !ok {
			fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
			printUsage(env.Stderr)
			return ExitUsage
		}
		usage(env.Stdout)
	}
	return ExitSuccess
}
