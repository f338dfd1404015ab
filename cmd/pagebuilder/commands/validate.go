package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopkit/pagebuilder"
)

// ValidateCommand implements the validate command. It lints layout JSON files
// (exports or site seeds) without touching a store.
func ValidateCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("layout file required\n\nUsage: pagebuilder validate <layout.json> [more files...]")
	}

	var totalErrors int
	for _, path := range args {
		errs := validateLayoutFile(path)
		if len(errs) == 0 {
			fmt.Printf("✓ %s\n", path)
			continue
		}
		totalErrors += len(errs)
		fmt.Printf("\n")
		for _, e := range errs {
			fmt.Println(e.Format())
		}
	}

	separator := "\n" + strings.Repeat("─", 60) + "\n"
	fmt.Print(separator)
	fmt.Println("Summary:")
	fmt.Printf("  Files checked: %d\n", len(args))
	fmt.Printf("  Errors:        %d\n", totalErrors)
	fmt.Printf("\n")

	if totalErrors > 0 {
		fmt.Printf("✗ Validation failed with %d error(s)\n", totalErrors)
		return fmt.Errorf("validation failed")
	}

	fmt.Printf("✓ All checks passed!\n")
	return nil
}

// validateLayoutFile checks one layout file and returns every problem found.
func validateLayoutFile(path string) []*pagebuilder.LayoutError {
	data, err := os.ReadFile(path)
	if err != nil {
		return []*pagebuilder.LayoutError{
			pagebuilder.NewLayoutError(path, fmt.Sprintf("cannot read file: %v", err)),
		}
	}

	var blocks []pagebuilder.Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return []*pagebuilder.LayoutError{
			pagebuilder.NewLayoutError(path, fmt.Sprintf("not a valid layout document: %v", err)).
				WithHint("A layout file is a JSON array of blocks, e.g. [{\"id\":\"hero-1\",\"type\":\"hero\",\"content\":{...}}]"),
		}
	}

	var errs []*pagebuilder.LayoutError
	seen := make(map[string]int)
	for i, b := range blocks {
		if err := b.Validate(); err != nil {
			errs = append(errs, pagebuilder.NewLayoutError(path, err.Error()).
				WithBlock(i, b.ID).
				WithHint(hintFor(b)))
			continue
		}
		if prev, dup := seen[b.ID]; dup {
			errs = append(errs, pagebuilder.NewLayoutError(path,
				fmt.Sprintf("duplicate block id %q (first used by block %d)", b.ID, prev)).
				WithBlock(i, b.ID).
				WithHint("Every block id must be unique within a layout"))
			continue
		}
		seen[b.ID] = i
	}
	return errs
}

// hintFor suggests a fix for the most common per-type validation mistakes.
func hintFor(b pagebuilder.Block) string {
	switch b.Type {
	case pagebuilder.TypeProductGrid:
		return "product-grid needs a collectionType (featured, new, all, or manual) and a limit >= 1"
	case pagebuilder.TypeColumns:
		return "columns needs a \"columns\" array in its content"
	case "":
		return "every block needs a \"type\" field; run 'pagebuilder blocks' to list valid types"
	default:
		if !pagebuilder.KnownType(b.Type) {
			return fmt.Sprintf("valid types are: %s", strings.Join(pagebuilder.KnownTypes(), ", "))
		}
	}
	return ""
}
