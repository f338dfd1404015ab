// Command pagebuilder is the CLI for creating, validating, and serving page
// builder sites.
package main

import (
	"fmt"
	"os"

	"github.com/shopkit/pagebuilder/cmd/pagebuilder/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "new":
		err = commands.NewCommand(args)
	case "validate":
		err = commands.ValidateCommand(args)
	case "blocks":
		err = commands.BlocksCommand(args)
	case "version":
		fmt.Printf("pagebuilder version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("pagebuilder - Visual page builder for your storefront")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagebuilder serve [directory]      Start the storefront and editor")
	fmt.Println("  pagebuilder new <name>             Create a new site")
	fmt.Println("  pagebuilder validate <layout.json> Check a layout file")
	fmt.Println("  pagebuilder blocks                 List available block types")
	fmt.Println("  pagebuilder version                Show version")
	fmt.Println("  pagebuilder help                   Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pagebuilder serve                  # Serve current directory")
	fmt.Println("  pagebuilder serve ./my-shop        # Serve a site directory")
	fmt.Println("  pagebuilder serve --port 8080      # Override the port")
	fmt.Println("  pagebuilder new my-shop            # Scaffold a new site")
	fmt.Println("  pagebuilder validate layout.json   # Lint a layout export")
}
