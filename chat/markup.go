package chat

import "fmt"

// Markup tokens understood by the game chat client. Blobs use double quotes
// on the outer link and single quotes on links nested inside the text://
// payload so the client's parser does not cut the blob short.
const (
	highlightOpen  = "##highlight##"
	highlightClose = "##end##"

	// PageBreak splits a blob into multiple windows
	PageBreak = "<pagebreak>"

	// Myname is replaced with the bot's character name at send time
	Myname = "<myname>"
)

// Highlight wraps text in the highlight color tokens.
func Highlight(text string) string {
	return highlightOpen + text + highlightClose
}

// Blob renders an expandable text window. The label is the clickable text in
// the message line, the title is the heading inside the window.
func Blob(label string, title string, content string) string {
	return fmt.Sprintf("<a href=\"text://%s\n\n%s\">%s</a>", Highlight(title), content, label)
}

// CmdLink renders a clickable link that runs a bot command via tell.
func CmdLink(label string, command string) string {
	return fmt.Sprintf("<a href='chatcmd:///tell %s %s'>%s</a>", Myname, command, label)
}

// WaypointLink renders a clickable map marker at the given coordinates.
func WaypointLink(label string, x int, y int, playfieldID int64) string {
	return fmt.Sprintf("<a href='chatcmd:///waypoint %d %d %d'>%s</a>", x, y, playfieldID, label)
}
