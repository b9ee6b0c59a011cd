package agent

import (
	"fmt"
	"strings"
	"time"
)

// FallbackMessage is returned whenever the model cannot be used.
const FallbackMessage = "Sorry, I couldn't work that out. Things I reliably understand:\n" +
	"• `who is @person` to hear what I know about someone\n" +
	"• `jibot @person is <fact>` to teach me something\n" +
	"• `what's on my calendar today` / `tomorrow` / `this week`\n" +
	"• `remind me to <text>` and `show my inbox`\n" +
	"• `explain <topic>` for the knowledge base"

// skillCatalog documents every skill the model may request.
var skillCatalog = []struct{ name, params, desc string }{
	{SkillPersonLookup, `"name"`, "what is known about a person"},
	{SkillOrgLookup, `"org"`, "information about a company or organization"},
	{SkillCalendarList, `"when": today|tomorrow|this week|next week`, "list calendar events"},
	{SkillCalendarCreate, `"text"`, "create an event from natural language, e.g. \"lunch with Ken friday 1pm\""},
	{SkillEmailSearch, `"query"`, "search mail (Gmail query syntax allowed)"},
	{SkillEmailDraft, `"to", "subject", "body"`, "create an email draft, never sends"},
	{SkillReminderList, ``, "show the owner's reminder inbox"},
	{SkillReminderAdd, `"text", optional "owner"`, "add a reminder"},
	{SkillSlackDM, `"recipient", "message"`, "send a direct message to a workspace member"},
	{SkillWeather, `optional "location"`, "current weather"},
	{SkillWebSearch, `"query"`, "search the web"},
	{SkillWebFetch, `"url"`, "read a web page"},
	{SkillRespond, `"message"`, "reply directly without any other skill"},
}

// SkillNames lists every skill in catalog order.
func SkillNames() []string {
	names := make([]string, len(skillCatalog))
	for i, s := range skillCatalog {
		names[i] = s.name
	}
	return names
}

// SystemPrompt builds the resolver prompt for the given bot name and time.
func SystemPrompt(botName string, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a personal assistant bot in a team chat.\n", botName)
	fmt.Fprintf(&sb, "Current time: %s.\n\n", now.Format("Monday, 2006-01-02 15:04 MST"))
	sb.WriteString("Decide which skills answer the user's latest message. Available skills:\n")
	for _, s := range skillCatalog {
		if s.params == "" {
			fmt.Fprintf(&sb, "- %s: %s\n", s.name, s.desc)
			continue
		}
		fmt.Fprintf(&sb, "- %s {%s}: %s\n", s.name, s.params, s.desc)
	}
	sb.WriteString(`
Reply with ONE JSON object and nothing else:
{"understanding": "<one sentence>", "skills": [{"skill": "<name>", ...params}], "fallback_response": "<reply if no skill fits>"}
Skills run in the order listed. Use an empty skills list with fallback_response for small talk.
`)
	return sb.String()
}

// synthPrompt asks the model to merge skill outputs into one reply.
const synthPrompt = `You turn raw tool outputs into one short, friendly chat reply.
Keep every concrete fact (names, times, numbers, links). Do not invent anything.
Lines starting with ❌ are failures: mention them briefly. Plain text, no JSON.`
