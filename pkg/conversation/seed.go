package conversation

import (
	"fmt"
	"unicode/utf8"
)

const (
	// WelcomeMessage and PromptMessage seed the root of a fresh tree.
	WelcomeMessage = "🌳 Welcome to ChatPath!\n\n" +
		"This is a conversational tree interface where you can branch off from any point in our conversation to explore different topics while preserving context.\n\n" +
		"Here's how it works:\n" +
		"• Select any text in this message or future responses\n" +
		"• A blue branch button will appear\n" +
		"• Click it to create a new conversation branch\n" +
		"• Each branch maintains the full context up to that point\n\n" +
		"Try it now! Select the phrase \"explore different topics\" above and click the branch button that appears."

	PromptMessage = "What would you like to talk about today? I can help you with questions about technology, science, creative projects, problem-solving, or anything else that interests you!"

	maxSeedQuoteRunes = 100
	seedInvitation    = "What would you like to explore about this?"
)

// SeedMessage is the first message of a branch created from selected.
func SeedMessage(selected string) string {
	quote := selected
	if utf8.RuneCountInString(quote) > maxSeedQuoteRunes {
		quote = string([]rune(quote)[:maxSeedQuoteRunes]) + "..."
	}
	return fmt.Sprintf("Continuing from: \"%s\"\n\n%s", quote, seedInvitation)
}
