package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/agent-console/internal"
	"github.com/spf13/cobra"
)

var (
	doctorVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether agent-console can provision and run the worker",
	Long: `Check the health of agent-console by verifying:
  • Worker runtime availability and version eligibility
  • Environment directory state
  • Session database accessibility

This command is useful for debugging provisioning issues before starting a chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(sectionStyle.Render("🔍 Agent Console Health Check"))
		fmt.Println()

		cfg, err := loadConfig()
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to load config:"), err)
			os.Exit(1)
		}

		minVersion, err := semver.NewVersion(cfg.Worker.MinVersion)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Invalid minimum version in config:"), err)
			os.Exit(1)
		}

		// Step 1: Probe runtime candidates
		fmt.Println(infoStyle.Render("Step 1: Probing runtime candidates..."))
		eligible := probeRuntimes(cfg.Worker.Candidates, minVersion)
		fmt.Println()

		// Step 2: Check environment directory
		fmt.Println(infoStyle.Render("Step 2: Checking environment..."))
		envDir, err := cfg.EnvDir()
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to resolve environment directory:"), err)
			os.Exit(1)
		}
		envExists := false
		if _, err := os.Stat(filepath.Join(envDir, "bin")); err == nil {
			envExists = true
			fmt.Println(successStyle.Render("✅ Environment exists"))
		} else {
			fmt.Println(warningStyle.Render("⚠️  Environment not created yet (created on first chat)"))
		}
		if doctorVerbose {
			fmt.Printf("   Directory: %s\n", envDir)
		}

		workerInstalled := false
		if envExists {
			workerPath := filepath.Join(envDir, "bin", cfg.Worker.Package)
			if _, err := os.Stat(workerPath); err == nil {
				workerInstalled = true
				fmt.Println(successStyle.Render(fmt.Sprintf("✅ Worker package %s installed", cfg.Worker.Package)))
				if doctorVerbose {
					fmt.Printf("   Executable: %s\n", workerPath)
				}
			} else {
				fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  Worker package %s not installed yet", cfg.Worker.Package)))
			}
		}
		fmt.Println()

		// Step 3: Check session database
		fmt.Println(infoStyle.Render("Step 3: Checking session database..."))
		store, err := openStore(cfg)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to open session store:"), err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		entries, err := store.List()
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to query session store:"), err)
			os.Exit(1)
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✅ Session database accessible (%d session(s))", len(entries))))
		fmt.Println()

		// Summary
		fmt.Println(sectionStyle.Render("📊 Summary"))
		fmt.Println()
		if !eligible {
			fmt.Println(errorStyle.Render("❌ Health check failed"))
			fmt.Println(fmt.Sprintf("   • No runtime meets minimum version %s", minVersion))
			return fmt.Errorf("health check failed: no eligible runtime")
		}
		if envExists && workerInstalled {
			fmt.Println(successStyle.Render("✅ Health check passed! Ready to chat."))
		} else {
			fmt.Println(successStyle.Render("✅ Runtime eligible"))
			fmt.Println("   • Provisioning will complete on the first 'agent-console chat'")
		}
		return nil
	},
}

// probeRuntimes reports each candidate's version against the minimum and
// returns whether any candidate is eligible.
func probeRuntimes(candidates []string, minVersion *semver.Version) bool {
	provisioner := &internal.Provisioner{MinVersion: minVersion}
	eligible := false

	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  %s not found", candidate)))
			continue
		}

		out, err := exec.CommandContext(context.Background(), path, "--version").CombinedOutput()
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  %s failed version probe: %v", candidate, err)))
			continue
		}

		version, err := internal.ParseRuntimeVersion(string(out))
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  %s: unreadable version", candidate)))
			continue
		}

		if version.LessThan(provisioner.MinVersion) {
			fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  %s version %s below minimum %s", candidate, version, minVersion)))
			continue
		}

		fmt.Println(successStyle.Render(fmt.Sprintf("✅ %s version %s eligible", candidate, version)))
		if doctorVerbose {
			fmt.Printf("   Path: %s\n", path)
		}
		eligible = true
	}

	return eligible
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorVerbose, "detail", false, "Show detailed diagnostic information")
}
