package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/agent-console/internal"
	"github.com/spf13/cobra"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	workerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	boundaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a stored session transcript",
	Long: `Show the full transcript of a stored session.

Use 'agent-console list' to see available session IDs.`,
	Args: cobra.ExactArgs(1),
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

		state, err := store.Load(args[0])
		if err != nil {
			return fmt.Errorf("session not found: %s (use 'agent-console list' to see available sessions)", args[0])
		}

		displayTranscript(args[0], state)
		return nil
	},
}

func displayTranscript(id string, state internal.State) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("💬 Session %s", id)))
	if state.WorkspaceRoot != "" {
		fmt.Println(workspaceStyle.Render("   " + state.WorkspaceRoot))
	}
	fmt.Println()

	for _, msg := range state.Transcript {
		if msg == nil {
			fmt.Println(boundaryStyle.Render(strings.Repeat("─", 60)))
			fmt.Println()
			continue
		}

		label := workerStyle.Render("worker")
		if msg.Source == internal.MessageSourceUser {
			label = userStyle.Render("user")
		}
		fmt.Println(label)

		var text strings.Builder
		for _, span := range msg.Content {
			text.WriteString(span.Text)
		}
		fmt.Println(text.String())
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
