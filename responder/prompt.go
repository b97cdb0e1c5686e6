package responder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/w-h-a/chatter/retriever"
	sessionstore "github.com/w-h-a/chatter/session_store"
)

// BuildContext renders retrieved documents as labeled blocks in
// retrieval-rank order.
func BuildContext(documents []retriever.Document) string {
	var sb bytes.Buffer

	for i, doc := range documents {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, doc.Title))
		sb.WriteString(fmt.Sprintf("Source: %s", doc.Source))
		if !doc.PublishedAt.IsZero() {
			sb.WriteString(fmt.Sprintf(" | Published: %s", doc.PublishedAt.Format("Jan 2, 2006")))
		}
		sb.WriteString("\n")
		sb.WriteString(doc.Content)
		sb.WriteString("\n")
		if len(doc.URL) > 0 {
			sb.WriteString(fmt.Sprintf("URL: %s\n", doc.URL))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// BuildPrompt concatenates the context blocks, recent history oldest-first,
// and the current query into one generation payload. History entries with
// blank content are dropped. Total length is not truncated here.
func BuildPrompt(query string, context string, history []sessionstore.Message) string {
	var sb bytes.Buffer

	sb.WriteString("You are a helpful news assistant. Answer using the provided articles and conversation so far. Cite article titles when relevant and say so when the articles do not cover the question.\n")

	if len(context) > 0 {
		sb.WriteString("\nRelevant articles:\n")
		sb.WriteString(context)
	}

	var kept []sessionstore.Message
	for _, msg := range history {
		if len(strings.TrimSpace(msg.Content)) == 0 {
			continue
		}
		kept = append(kept, msg)
	}

	if len(kept) > 0 {
		sb.WriteString("\nConversation history:\n")
		for _, msg := range kept {
			label := "User"
			if msg.Type == sessionstore.MessageTypeBot {
				label = "Assistant"
			}
			sb.WriteString(fmt.Sprintf("[%s]: %s\n", label, msg.Content))
		}
	}

	sb.WriteString("\nCurrent user message:\n")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\n\nCompose the best possible assistant reply.\n")

	return sb.String()
}
