package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/agent-console/internal"
	"github.com/iksnae/agent-console/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	workspace string
	sessionID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export stored chat sessions to various formats (jsonl, md, yaml, json).

You can export all sessions, filter by workspace, or export a specific session by ID.
Use 'agent-console list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer func() { _ = store.Close() }()

		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		// Filter by workspace if specified
		if workspace != "" {
			filtered := make([]internal.SessionEntry, 0)
			for _, entry := range entries {
				if entry.Workspace == workspace {
					filtered = append(filtered, entry)
				}
			}
			entries = filtered
		}

		// Filter by session ID if specified
		if sessionID != "" {
			filtered := make([]internal.SessionEntry, 0)
			for _, entry := range entries {
				if entry.ID == sessionID {
					filtered = append(filtered, entry)
					break // Only one session should match
				}
			}
			if len(filtered) == 0 {
				return fmt.Errorf("session not found: %s (use 'agent-console list' to see available sessions)", sessionID)
			}
			entries = filtered
		}

		// Create exporter
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		// Ensure output directory exists
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		for _, entry := range entries {
			state, err := store.Load(entry.ID)
			if err != nil {
				internal.LogWarn("Failed to load session %s: %v", entry.ID, err)
				continue
			}

			filename := fmt.Sprintf("session_%s.%s", entry.ID, exporter.Extension())
			path := filepath.Join(outputDir, filename)

			file, err := os.Create(path)
			if err != nil {
				internal.LogError("Failed to create file %s: %v", path, err)
				continue
			}

			doc := internal.BuildDocument(entry.ID, state)
			if err := exporter.Export(doc, file); err != nil {
				_ = file.Close()
				internal.LogError("Failed to export session %s: %v", entry.ID, err)
				continue
			}

			if err := file.Close(); err != nil {
				internal.LogWarn("Failed to close file %s: %v", path, err)
			}
			exported++
		}

		fmt.Printf("Export complete: %d session(s) exported to %s\n", exported, outputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&workspace, "workspace", "", "Filter by workspace")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
}
