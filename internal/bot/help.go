package bot

import (
	"fmt"
	"strings"
)

// HelpText lists the command forms the bot understands without an LLM.
func HelpText(trigger string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi! I'm %s. Try one of these:\n", trigger)
	fmt.Fprintf(&sb, "• `%s @person is <fact>` to teach me something\n", trigger)
	sb.WriteString("• `who is @person` to hear what I know\n")
	fmt.Fprintf(&sb, "• `%s forget @person [n|all]` to list or remove facts\n", trigger)
	sb.WriteString("• `remind me to <text>` to leave a note in the inbox\n")
	sb.WriteString("• `explain <topic>` or `what is <topic>` for the knowledge base\n")
	fmt.Fprintf(&sb, "• `%s what's on my calendar tomorrow`, `%s weather in Kyoto`, `%s search for <query>`", trigger, trigger, trigger)
	return sb.String()
}

// DocsText describes the admin commands.
func DocsText(command string) string {
	if command == "" {
		command = "/jibot"
	}
	rows := []struct{ usage, desc string }{
		{"help", "show the chat command forms"},
		{"docs", "show this list"},
		{"whoami", "show your id and role"},
		{"explain <topic>", "look a topic up in the knowledge base"},
		{"whatis <topic>", "same as explain"},
		{"remind <text>", "add a reminder to the inbox"},
		{"inbox [list|clear <n>|clear all]", "read or clear the inbox (admin)"},
		{"admins", "list the owner and admins"},
		{"promote <@user>", "make a user an admin (owner)"},
		{"demote <@user>", "remove an admin (owner)"},
		{"link <@user> <workspace> <id>", "link another workspace identity to a user (admin)"},
		{"claim", "become the owner, only while no owner exists"},
	}
	var sb strings.Builder
	sb.WriteString("Commands:")
	for _, r := range rows {
		fmt.Fprintf(&sb, "\n`%s %s` %s", command, r.usage, r.desc)
	}
	return sb.String()
}
