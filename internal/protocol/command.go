// Package protocol classifies inbound client payloads into commands.
package protocol

import "strings"

// CommandKind identifies what an inbound payload asks the server to do.
type CommandKind int

const (
	// CmdChat is a plain chat message to be broadcast.
	CmdChat CommandKind = iota
	// CmdQuit asks the server to close the connection.
	CmdQuit
	// CmdList requests the current presence list.
	CmdList
	// CmdStatus requests a presence status change.
	CmdStatus
	// CmdDirect is a private message to a named recipient.
	CmdDirect
	// CmdIgnore is a payload the server silently drops, e.g. a TO: line
	// with missing segments.
	CmdIgnore
)

// Command is a parsed inbound payload. Which fields are meaningful
// depends on Kind: Status for CmdStatus, Target/Text for CmdDirect,
// Text for CmdChat.
type Command struct {
	Kind   CommandKind
	Status string
	Target string
	Text   string
}

// ParseCommand classifies one inbound line. Command words are matched
// case-insensitively ("quit", "Quit" and "QUIT" all disconnect), while
// message content and usernames keep their original casing.
func ParseCommand(content string) Command {
	trimmed := strings.TrimSpace(content)
	upper := strings.ToUpper(trimmed)

	switch {
	case upper == "QUIT":
		return Command{Kind: CmdQuit}

	case upper == "LIST":
		return Command{Kind: CmdList}

	case strings.HasPrefix(upper, "STATUS:"):
		_, value, _ := strings.Cut(trimmed, ":")
		return Command{
			Kind:   CmdStatus,
			Status: strings.ToLower(strings.TrimSpace(value)),
		}

	case strings.HasPrefix(upper, "TO:"):
		parts := strings.SplitN(trimmed, ":", 3)
		if len(parts) < 3 {
			return Command{Kind: CmdIgnore}
		}
		return Command{
			Kind:   CmdDirect,
			Target: strings.TrimSpace(parts[1]),
			Text:   strings.TrimSpace(parts[2]),
		}

	default:
		return Command{Kind: CmdChat, Text: trimmed}
	}
}
