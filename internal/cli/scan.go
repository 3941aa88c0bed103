package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/pindex/pkg/catalog"
	"github.com/glorpus-work/pindex/pkg/hook"
	"github.com/glorpus-work/pindex/pkg/refresh"
	"github.com/glorpus-work/pindex/pkg/store"
)

// TabWidth is the width of tabs in formatted output.
const TabWidth = 2

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	var rootDir string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the package directory once",
		Long:  "Build the catalog from the package directory and print what was found, without starting a server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, rootDir)
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", "", "package directory to scan (overrides config)")

	return cmd
}

func runScan(cmd *cobra.Command, rootDir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if rootDir != "" {
		cfg.Storage.RootDir = rootDir
	}

	storage := store.NewDir(cfg.Storage.RootDir, cfg.Storage.Recursive)
	cat := catalog.New()
	refresher := refresh.New(cat, storage, hook.NewManager(), refresh.Options{
		ManifestPath: cfg.ManifestPath(),
	})
	if err := refresher.Bootstrap(cmd.Context()); err != nil {
		return fmt.Errorf("failed to scan %s: %w", cfg.Storage.RootDir, err)
	}

	snap, err := cat.Current()
	if err != nil {
		return err
	}

	if cfg.Settings.OutputFormat == "json" {
		return printScanJSON(snap)
	}
	return printScanTable(snap)
}

type scanProject struct {
	Name    string `json:"name"`
	Files   int    `json:"files"`
	Latest  string `json:"latest,omitempty"`
	Example string `json:"example_filename,omitempty"`
}

func printScanJSON(snap *catalog.Snapshot) error {
	projects := make([]scanProject, 0, len(snap.Names()))
	for _, name := range snap.Names() {
		projects = append(projects, summarizeProject(snap, name))
	}
	doc := map[string]any{
		"generation": snap.Generation(),
		"files":      len(snap.Files()),
		"projects":   projects,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func printScanTable(snap *catalog.Snapshot) error {
	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "PROJECT\tFILES\tLATEST")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----\t------")
	for _, name := range snap.Names() {
		p := summarizeProject(snap, name)
		_, _ = fmt.Fprintf(tabWriter, "%s\t%d\t%s\n", p.Name, p.Files, p.Latest)
	}
	_ = tabWriter.Flush()

	fmt.Printf("\n%d files across %d projects\n", len(snap.Files()), len(snap.Names()))
	return nil
}

func summarizeProject(snap *catalog.Snapshot, name string) scanProject {
	records := snap.Project(name)
	p := scanProject{Name: name, Files: len(records)}
	if latest, ok := snap.Latest(name); ok {
		p.Latest = latest.Version.Raw()
		p.Example = latest.RawFilename
	}
	return p
}
