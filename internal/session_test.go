package internal

import "testing"

func TestBuildDocument(t *testing.T) {
	state := NewState()
	state.WorkspaceRoot = "/w"
	state.Transcript = Transcript{
		{Source: MessageSourceUser, Content: []MessageContent{{Text: "fix "}, {Text: "main.go", Filepath: "/w/main.go"}}},
		nil,
		{Source: MessageSourceWorker, Content: []MessageContent{{Text: "done"}}},
	}

	doc := BuildDocument("s1", state)

	if doc.ID != "s1" || doc.Workspace != "/w" {
		t.Errorf("Header mismatch: %+v", doc)
	}
	if len(doc.Messages) != 3 {
		t.Fatalf("Expected 3 export messages, got %d", len(doc.Messages))
	}
	if doc.Messages[0].Source != "user" || doc.Messages[0].Text != "fix main.go" {
		t.Errorf("Expected spans concatenated, got %+v", doc.Messages[0])
	}
	if !doc.Messages[1].Boundary {
		t.Error("Expected boundary record for nil entry")
	}
	if doc.Messages[2].Source != "worker" || doc.Messages[2].Text != "done" {
		t.Errorf("Worker message mismatch: %+v", doc.Messages[2])
	}
}

func TestBuildDocument_Empty(t *testing.T) {
	doc := BuildDocument("s1", NewState())
	if len(doc.Messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(doc.Messages))
	}
}
