// Package proto holds the text of the line protocol spoken to clients.
package proto

import "strings"

// Fixed lines sent by the server.
const (
	Welcome   = "Welcome. Please enter the name you'd like to use.\n"
	Rejected  = "Your name must consist of one or more alphanumeric characters.\n"
	Lagged    = "Your connection has lagged and dropped messages.\n"
	Throttled = "* Slow down; your message was dropped.\n"
)

// Terminator ends every line in both directions.
const Terminator = '\n'

// Joined announces a new member to everyone else.
func Joined(name string) string {
	return "* " + name + " joins.\n"
}

// Left announces a departed member.
func Left(name string) string {
	return "* " + name + " leaves.\n"
}

// Roster lists the members present before the recipient joined.
func Roster(names []string) string {
	return "* Also here: " + strings.Join(names, ", ") + "\n"
}

// Chat prefixes a line with its sender. line is expected to carry its own
// terminator.
func Chat(name, line string) string {
	return "[" + name + "] " + line
}

// Terminate appends a terminator to line if it does not already end with one.
func Terminate(line string) string {
	if strings.HasSuffix(line, string(Terminator)) {
		return line
	}
	return line + string(Terminator)
}
