package commands

import (
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed all:templates
var templatesFS embed.FS

// validTemplates lists all available template types
var validTemplates = []string{
	"basic",
	"boutique",
}

// templateDescriptions provides help text for each template
var templateDescriptions = map[string]string{
	"basic":    "Minimal storefront with a hero, featured grid, and story section",
	"boutique": "Dark boutique theme with promo banner, new arrivals, and columns",
}

// NewCommand implements the new command.
func NewCommand(args []string) error {
	flagSet := flag.NewFlagSet("new", flag.ContinueOnError)
	templateName := flagSet.String("template", "basic", "Template type: basic, boutique")
	showList := flagSet.Bool("list", false, "List available templates")

	flagSet.Usage = func() {
		fmt.Println("Usage: pagebuilder new [options] <site-name>")
		fmt.Println()
		fmt.Println("Create a new page builder site from a template.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
		fmt.Println()
		fmt.Println("Templates:")
		for _, t := range validTemplates {
			fmt.Printf("  %-10s %s\n", t, templateDescriptions[t])
		}
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  pagebuilder new my-shop                      # Create with basic template")
		fmt.Println("  pagebuilder new my-shop --template=boutique  # Create with boutique template")
		fmt.Println("  pagebuilder new --list                       # List available templates")
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if *showList {
		fmt.Println("Available templates:")
		fmt.Println()
		for _, t := range validTemplates {
			fmt.Printf("  %-10s %s\n", t, templateDescriptions[t])
		}
		return nil
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) < 1 {
		return fmt.Errorf("site name required\n\nUsage: pagebuilder new [options] <site-name>\n\nRun 'pagebuilder new --help' for more information")
	}

	siteName := remainingArgs[0]

	if !isValidTemplate(*templateName) {
		return fmt.Errorf("unknown template: %s\n\nAvailable templates: %s", *templateName, strings.Join(validTemplates, ", "))
	}

	if siteName == "" {
		return fmt.Errorf("site name cannot be empty")
	}
	if strings.Contains(siteName, " ") {
		return fmt.Errorf("site name cannot contain spaces")
	}

	if _, err := os.Stat(siteName); !os.IsNotExist(err) {
		return fmt.Errorf("directory '%s' already exists", siteName)
	}

	return createSite(siteName, *templateName)
}

// isValidTemplate checks if a template name is valid
func isValidTemplate(name string) bool {
	for _, t := range validTemplates {
		if t == name {
			return true
		}
	}
	return false
}

// createSite creates a new site directory from a template
func createSite(siteName, templateName string) error {
	data := map[string]string{
		"Title":        toTitle(siteName),
		"SiteName":     siteName,
		"TemplateName": templateName,
	}

	templateDir := fmt.Sprintf("templates/%s", templateName)

	var files []string
	err := fs.WalkDir(templatesFS, templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("template '%s' has no files", templateName)
	}

	if err := os.MkdirAll(siteName, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	for _, templatePath := range files {
		if err := processTemplateFile(siteName, templateName, templatePath, data); err != nil {
			os.RemoveAll(siteName)
			return err
		}
	}

	printSuccessMessage(siteName, templateName)
	return nil
}

// processTemplateFile reads a template file and writes it to the site
// directory. Scaffolding variables use [[.Var]] delimiters so layout content
// can hold ordinary curly braces.
func processTemplateFile(siteName, templateName, templatePath string, data map[string]string) error {
	content, err := templatesFS.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}

	templatePrefix := fmt.Sprintf("templates/%s/", templateName)
	relativePath := strings.TrimPrefix(templatePath, templatePrefix)
	outputPath := filepath.Join(siteName, relativePath)

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", outputDir, err)
	}

	tmpl, err := template.New(filepath.Base(templatePath)).Delims("[[", "]]").Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write template %s: %w", templatePath, err)
	}

	return nil
}

// printSuccessMessage displays the site creation success message
func printSuccessMessage(siteName, templateName string) {
	fmt.Printf("✨ Created new %s site: %s\n\n", templateName, siteName)
	fmt.Printf("🚀 Next steps:\n")
	fmt.Printf("   cd %s\n", siteName)
	fmt.Printf("   pagebuilder serve\n\n")
	fmt.Printf("🛍️  Your storefront will be at http://localhost:3000\n")
	fmt.Printf("✏️  The editor will be at http://localhost:3000/editor\n")
}

// toTitle converts a site name to a title case string
// Example: "my-shop" -> "My Shop"
func toTitle(name string) string {
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")

	words := strings.Fields(name)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
