package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	highlightPattern = regexp.MustCompile(`##highlight##(.*?)##end##`)
	blobPattern      = regexp.MustCompile(`(?s)<a href="text://(.*?)">(.*?)</a>`)
	linkPattern      = regexp.MustCompile(`(?s)<a href='[^']*'>(.*?)</a>`)
)

var (
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	linkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)
	dividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderTerminal translates chat markup into styled terminal text. Blobs are
// expanded in place with their content indented under the label, and command
// links reduce to their label since there is no client to click them in.
func RenderTerminal(text string) string {
	// Expand blobs before the generic link pattern can eat them
	text = blobPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := blobPattern.FindStringSubmatch(match)
		content := strings.TrimSpace(groups[1])
		label := groups[2]

		indented := "  " + strings.ReplaceAll(content, "\n", "\n  ")
		return fmt.Sprintf("%s\n%s", linkStyle.Render(label), indented)
	})

	text = linkPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := linkPattern.FindStringSubmatch(match)
		return linkStyle.Render(groups[1])
	})

	text = strings.ReplaceAll(text, PageBreak, dividerStyle.Render(strings.Repeat("-", 24)))

	text = highlightPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := highlightPattern.FindStringSubmatch(match)
		return highlightStyle.Render(groups[1])
	})

	return text
}
