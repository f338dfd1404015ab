package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopkit/pagebuilder"
)

// BlocksCommand implements the blocks command: it lists every block type the
// renderer understands, with its default content schema.
func BlocksCommand(args []string) error {
	verbose := false
	for _, arg := range args {
		if arg == "--verbose" || arg == "-v" {
			verbose = true
		}
	}

	fmt.Printf("🧱 Available block types:\n\n")

	for _, blockType := range pagebuilder.KnownTypes() {
		b := pagebuilder.NewBlock(blockType)
		fmt.Printf("  %-14s %s\n", blockType, b.DisplayLabel())

		content := pagebuilder.DefaultContent(blockType)
		keys := make([]string, 0, len(content))
		for k := range content {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if verbose {
			for _, k := range keys {
				val, _ := json.Marshal(content[k])
				fmt.Printf("    %-12s %s\n", k, val)
			}
			fmt.Printf("\n")
		} else {
			fmt.Printf("    content keys: %v\n\n", keys)
		}
	}

	fmt.Printf("Use the editor (or POST /api/blocks) to add blocks to a page.\n")
	return nil
}
