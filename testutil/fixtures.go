package testutil

import (
	"path/filepath"
	"testing"

	"github.com/iksnae/agent-console/internal"
)

// SampleState builds a session state with a short two-speaker transcript,
// a pending edit, and a populated context summary.
func SampleState(workspace string) internal.State {
	state := internal.NewState()
	state.WorkspaceRoot = workspace
	state.SessionActive = true
	state.Transcript = internal.Transcript{
		{
			Source: internal.MessageSourceUser,
			Content: []internal.MessageContent{
				{Text: "add a retry to the fetcher"},
			},
		},
		{
			Source: internal.MessageSourceWorker,
			Content: []internal.MessageContent{
				{Text: "I'll add exponential backoff to "},
				{Text: "fetcher.go", Filepath: filepath.Join(workspace, "fetcher.go")},
				{Text: " and update the tests."},
			},
		},
	}
	state.Edits = []internal.FileEdit{
		{ID: "edit1", Filepath: filepath.Join(workspace, "fetcher.go"), Display: "fetcher.go"},
	}
	state.Context = internal.ContextSummary{
		Features:      []string{filepath.Join(workspace, "fetcher.go")},
		TotalTokens:   1200,
		MaximumTokens: 8000,
		TotalCost:     0.04,
	}
	state.Folders = internal.FolderSet(state.Context.Paths())
	return state
}

// CreateStoreFixture creates a session database at dbPath seeded with the
// given snapshots, keyed by session ID.
func CreateStoreFixture(t *testing.T, dbPath string, sessions map[string]internal.State) {
	t.Helper()
	store, err := internal.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store fixture: %v", err)
	}
	defer func() { _ = store.Close() }()

	for id, state := range sessions {
		if err := store.Save(id, state); err != nil {
			t.Fatalf("Failed to seed session %s: %v", id, err)
		}
	}
}

// CreateConfigFixture writes a YAML config file and returns its path.
func CreateConfigFixture(t *testing.T, dir string, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	WriteFile(t, path, []byte(contents))
	return path
}
