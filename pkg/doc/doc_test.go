package doc

import (
	"testing"

	"github.com/go-go-golems/glazed/pkg/help"
)

func TestAddDocToHelpSystem_LoadsTopics(t *testing.T) {
	hs := help.NewHelpSystem()
	if err := AddDocToHelpSystem(hs); err != nil {
		t.Fatalf("AddDocToHelpSystem failed: %v", err)
	}

	titles := map[string]string{
		"conversation-trees": "Conversation trees",
		"storage":            "Storage and configuration",
		"tui":                "Terminal interface",
	}

	for slug, title := range titles {
		section, err := hs.GetSectionWithSlug(slug)
		if err != nil {
			t.Fatalf("expected slug %q to load: %v", slug, err)
		}
		if section == nil {
			t.Fatalf("expected slug %q to resolve to section", slug)
		}
		if section.Title != title {
			t.Fatalf("expected slug %q to have title %q, got %q", slug, title, section.Title)
		}
		if section.Content == "" {
			t.Fatalf("expected slug %q to have content", slug)
		}
	}
}
