package domain

import "strings"

type EventKind string

const (
	EventCommand EventKind = "command"
	EventButton  EventKind = "button"
	EventText    EventKind = "text"
)

type Command string

const (
	CommandStart           Command = "start"
	CommandHelp            Command = "help"
	CommandListItems       Command = "items"
	CommandViewCart        Command = "cart"
	CommandRemoveFromCart  Command = "remove_from_cart"
	CommandAdminRemoveItem Command = "admin_remove_item"
	CommandCancel          Command = "cancel"
)

var commandAliases = map[string]Command{
	"start":               CommandStart,
	"help":                CommandHelp,
	"items":               CommandListItems,
	"burgers":             CommandListItems,
	"cart":                CommandViewCart,
	"remove_from_cart":    CommandRemoveFromCart,
	"admin_remove_item":   CommandAdminRemoveItem,
	"admin_remove_burger": CommandAdminRemoveItem,
	"cancel":              CommandCancel,
}

// Event is one inbound user action, already decoded from the transport.
type Event struct {
	Kind      EventKind
	UserID    int64
	ChatID    int64
	MessageID int

	Command Command
	Payload Payload
	Text    string
}

// ParseCommand recognises "/name", "/name@bot" and "/name args". It reports
// false for anything that is not a known command.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	name, _, _ := strings.Cut(text[1:], " ")
	name, _, _ = strings.Cut(name, "@")
	cmd, ok := commandAliases[strings.ToLower(name)]
	return cmd, ok
}
