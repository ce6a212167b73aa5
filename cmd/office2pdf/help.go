package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: office2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the HTTP conversion service")
	fmt.Fprintln(w, "  convert    Convert office documents to PDF")
	fmt.Fprintln(w, "  doctor     Check LibreOffice and the host setup")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'office2pdf help <command>' for details on a specific command.")
}

// printCommonUsage prints flags shared by serve, convert and config.
func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Engine:")
	fmt.Fprintln(w, "  -w, --max-engines <n>        Concurrent LibreOffice processes (0 = auto)")
	fmt.Fprintln(w, "      --engine-timeout <d>     Budget of one engine run (default 2m)")
	fmt.Fprintln(w, "      --queue-timeout <d>      Wait for an engine slot (default 30s)")
	fmt.Fprintln(w, "      --scratch-root <dir>     Per-job workspaces (default <tmp>/office2pdf)")
	fmt.Fprintln(w, "      --engine-binary <path>   soffice path (default: discover)")
	fmt.Fprintln(w, "      --no-verify              Skip content sniffing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>          Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet                  Only show errors")
	fmt.Fprintln(w, "  -v, --verbose                Show detailed timing and debug logs")
	fmt.Fprintln(w, "      --log-level <s>          debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>         text, json, logfmt")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: office2pdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP conversion service until interrupted.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  POST /v1/convert    Multipart field \"file\", or raw body with ?format=")
	fmt.Fprintln(w, "                      Watermark: field \"name\" or ?watermark=")
	fmt.Fprintln(w, "  GET  /v1/formats    Supported input formats")
	fmt.Fprintln(w, "  GET  /healthz       Engine slot usage")
	fmt.Fprintln(w, "  GET  /metrics       Prometheus metrics")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <addr>            Listen address (default :8080)")
	fmt.Fprintln(w, "      --max-upload <bytes>     Upload cap (default 50 MiB)")
	fmt.Fprintln(w, "      --request-timeout <d>    Budget of one HTTP conversion (default 3m)")
	fmt.Fprintln(w, "      --rate-limit <n>         Requests per second on /v1 (0 = unlimited)")
	fmt.Fprintln(w, "      --burst <n>              Rate limiter burst")
	fmt.Fprintln(w, "      --redis-url <url>        Result cache (redis://host:6379/0)")
	fmt.Fprintln(w, "      --cache-ttl <d>          Lifetime of cached PDFs (default 24h)")
	fmt.Fprintln(w, "      --no-metrics             Do not serve /metrics")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: office2pdf convert <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert office documents to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Document or directory (searched recursively)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>          Output file or directory")
	fmt.Fprintln(w, "  -f, --format <ext>           Input format when the extension is missing")
	fmt.Fprintln(w, "  -t, --timeout <d>            Overall budget per document")
	fmt.Fprintln(w, "      --watermark <name>       Stamp name on every slide (.pptx only)")
	fmt.Fprintln(w)
	printCommonUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 general, 2 usage or unsupported format, 3 I/O,")
	fmt.Fprintln(w, "  4 render failed or timed out, 5 overloaded")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "serve":
		printServeUsage(env.Stdout)
	case "convert":
		printConvertUsage(env.Stdout)
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: office2pdf doctor [--json] [--config <name>]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check LibreOffice, the scratch root and fonts.")
	case "config":
		fmt.Fprintln(env.Stdout, "Usage: office2pdf config [flags]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Print the effective configuration after config file,")
		fmt.Fprintln(env.Stdout, "OFFICE2PDF_* variables and flags are merged.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: office2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: office2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
