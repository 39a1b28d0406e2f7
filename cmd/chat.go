package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/iksnae/agent-console/internal"
	"github.com/spf13/cobra"
)

var (
	resumeID string
)

var chatCmd = &cobra.Command{
	Use:   "chat [workspace]",
	Short: "Start an interactive session with the worker",
	Long: `Start an interactive chat session against a workspace.

The worker runtime is provisioned on first use. The workspace defaults to
the current directory. The transcript is saved to the session database on
exit and can be resumed later with --resume.

Keys:
  enter    send input (when the worker is waiting for it)
  ctrl+g   interrupt the worker
  ctrl+a   accept the first proposed edit
  ctrl+p   preview the first proposed edit
  ctrl+d   decline the first proposed edit
  ctrl+c   quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		root, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		if len(args) == 1 {
			root, err = filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid workspace path: %w", err)
			}
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer func() { _ = store.Close() }()

		sessionID := resumeID
		state := internal.NewState()
		if resumeID != "" {
			state, err = store.Load(resumeID)
			if err != nil {
				return fmt.Errorf("session not found: %s (use 'agent-console list' to see available sessions)", resumeID)
			}
		} else {
			sessionID = uuid.NewString()
		}

		minVersion, err := semver.NewVersion(cfg.Worker.MinVersion)
		if err != nil {
			return fmt.Errorf("invalid minimum version %q: %w", cfg.Worker.MinVersion, err)
		}
		envDir, err := cfg.EnvDir()
		if err != nil {
			return err
		}

		bus := internal.NewBus()
		supervisor := internal.NewSupervisor(bus, internal.ExecLauncher{}, &internal.Provisioner{
			Candidates: cfg.Worker.Candidates,
			MinVersion: minVersion,
			EnvDir:     envDir,
			Package:    cfg.Worker.Package,
		})

		// Subscribe before the first envelope can arrive.
		events := bus.Subscribe()

		if err := supervisor.StartServer(context.Background(), root); err != nil {
			return err
		}
		defer supervisor.CloseServer()

		// Local session-boundary marker; never forwarded to the worker.
		_ = bus.Send(internal.NewEnvelope(nil, "vscode:newSession", map[string]any{"workspaceRoot": root}))

		model := newChatModel(sessionID, state, bus, events)
		program := tea.NewProgram(model, tea.WithAltScreen())
		final, err := program.Run()
		if err != nil {
			return fmt.Errorf("chat session failed: %w", err)
		}

		if m, ok := final.(chatModel); ok {
			if err := store.Save(sessionID, m.state); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			fmt.Printf("Session saved: %s\n", sessionID)
		}
		return nil
	},
}

var (
	chatUserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	chatWorkerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	chatBoundaryStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	chatErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	chatWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	chatFileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	chatStatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	crashedBannerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("196")).
				Bold(true).
				Padding(0, 1)

	editPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

type envelopeMsg internal.Envelope

type chatModel struct {
	sessionID string
	state     internal.State
	bus       *internal.Bus
	events    <-chan internal.Envelope

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	ready    bool
	width    int
	height   int
}

func newChatModel(sessionID string, state internal.State, bus *internal.Bus, events <-chan internal.Envelope) chatModel {
	input := textinput.New()
	input.Placeholder = "Waiting for the worker..."
	input.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return chatModel{
		sessionID: sessionID,
		state:     state,
		bus:       bus,
		events:    events,
		input:     input,
		spinner:   spin,
	}
}

func waitForEnvelope(events <-chan internal.Envelope) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-events
		if !ok {
			return nil
		}
		return envelopeMsg(env)
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEnvelope(m.events))
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chrome := 7 // header, status line, input, edit panel allowance
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(1, msg.Height-chrome))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(1, msg.Height-chrome)
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport()
		return m, nil

	case envelopeMsg:
		event := internal.DecodeEvent(internal.Envelope(msg))
		m.state = internal.Reduce(m.state, event)
		switch event.(type) {
		case internal.InputRequestEvent:
			m.input.SetValue(m.state.Draft)
			m.input.Placeholder = "Type your message"
			m.input.Focus()
		case internal.DefaultPromptEvent:
			if m.input.Focused() {
				m.input.SetValue(m.state.Draft)
			}
		}
		m.refreshViewport()
		return m, waitForEnvelope(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+g":
			if m.state.Interruptable {
				_ = m.bus.Send(internal.InterruptEnvelope())
			}
			return m, nil
		case "ctrl+a":
			return m.resolveFirstEdit(internal.EditAccepted), nil
		case "ctrl+p":
			return m.resolveFirstEdit(internal.EditPreviewed), nil
		case "ctrl+d":
			return m.resolveFirstEdit(internal.EditDeclined), nil
		case "enter":
			if !m.input.Focused() {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			state, env := internal.SubmitInput(m.state, text)
			m.state = state
			if env != nil {
				_ = m.bus.Send(*env)
			}
			m.input.SetValue("")
			m.input.Blur()
			m.input.Placeholder = "Waiting for the worker..."
			m.refreshViewport()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) resolveFirstEdit(decision internal.EditDecision) chatModel {
	if len(m.state.Edits) == 0 {
		return m
	}
	state, env := internal.ResolveEdit(m.state, 0, decision)
	m.state = state
	if env != nil {
		_ = m.bus.Send(*env)
	}
	return m
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderTranscript(m.state.Transcript, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Starting session..."
	}

	var b strings.Builder

	header := headerStyle.Render("💬 agent-console")
	if m.state.WorkspaceRoot != "" {
		header += "  " + workspaceStyle.Render(m.state.WorkspaceRoot)
	}
	b.WriteString(header + "\n")

	if m.state.Crashed {
		b.WriteString(crashedBannerStyle.Render("Worker crashed. Restart the session to continue.") + "\n")
	}

	b.WriteString(m.viewport.View() + "\n")

	if len(m.state.Edits) > 0 {
		var lines []string
		lines = append(lines, chatWarnStyle.Render(fmt.Sprintf("%d proposed edit(s)  (ctrl+a accept, ctrl+p preview, ctrl+d decline)", len(m.state.Edits))))
		for i, edit := range m.state.Edits {
			if i >= 3 {
				lines = append(lines, chatStatusStyle.Render(fmt.Sprintf("... and %d more", len(m.state.Edits)-3)))
				break
			}
			display := edit.Display
			if display == "" {
				display = edit.Filepath
			}
			lines = append(lines, chatFileStyle.Render(display))
		}
		b.WriteString(editPanelStyle.Render(strings.Join(lines, "\n")) + "\n")
	}

	b.WriteString(m.statusLine() + "\n")
	if m.input.Focused() {
		b.WriteString(m.input.View())
	} else if m.state.SessionActive {
		b.WriteString(m.spinner.View() + chatStatusStyle.Render(" working..."))
	} else {
		b.WriteString(chatStatusStyle.Render("session inactive"))
	}

	return b.String()
}

func (m chatModel) statusLine() string {
	parts := []string{}
	if m.state.Context.MaximumTokens > 0 {
		parts = append(parts, fmt.Sprintf("tokens %d/%d", m.state.Context.TotalTokens, m.state.Context.MaximumTokens))
	}
	if m.state.Context.TotalCost > 0 {
		parts = append(parts, fmt.Sprintf("cost $%.2f", m.state.Context.TotalCost))
	}
	if n := len(m.state.Context.Features) + len(m.state.Context.AutoFeatures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d file(s) in context", n))
	}
	if m.state.Interruptable {
		parts = append(parts, "ctrl+g interrupts")
	}
	if len(parts) == 0 {
		return chatStatusStyle.Render(fmt.Sprintf("session %s", shortID(m.sessionID)))
	}
	return chatStatusStyle.Render(strings.Join(parts, "  •  "))
}

// renderTranscript draws the transcript with per-span styling.
func renderTranscript(transcript internal.Transcript, width int) string {
	var b strings.Builder
	for _, msg := range transcript {
		if msg == nil {
			b.WriteString(chatBoundaryStyle.Render(strings.Repeat("─", max(10, width-2))) + "\n")
			continue
		}

		label := chatWorkerStyle.Render("worker")
		if msg.Source == internal.MessageSourceUser {
			label = chatUserStyle.Render("you")
		}
		b.WriteString(label + "\n")

		for _, span := range msg.Content {
			b.WriteString(renderSpan(span))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func renderSpan(span internal.MessageContent) string {
	text := span.Text
	if span.Filepath != "" {
		display := span.FilepathDisplay
		if display == "" {
			display = span.Filepath
		}
		return chatFileStyle.Render(display)
	}
	switch span.Style {
	case "error":
		return chatErrorStyle.Render(text)
	case "warning":
		return chatWarnStyle.Render(text)
	}
	if span.Color != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(span.Color)).Render(text)
	}
	return text
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&resumeID, "resume", "", "Resume a stored session by ID")
}
