package discussion

import (
	"fmt"
	"strings"

	"github.com/ashureev/speakup-gd/internal/domain"
)

const (
	directiveHandBack    = "This is your last point for now. Close by inviting the user to respond, addressing them by name."
	directiveSilence     = "The user has been quiet for a while. Gently invite them to share their view."
	directiveTimeWarning = "Time is almost up. Encourage the group, especially the user, to start concluding."
)

func personaPrompt(p domain.Participant, t botTurn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a participant in a group discussion practice session.\n", p.Name)
	fmt.Fprintf(&b, "Your personality is %s.", p.Personality)
	if p.Style != "" {
		b.WriteString(" " + p.Style)
	}
	fmt.Fprintf(&b, "\nTopic: %q\n", t.topic)
	fmt.Fprintf(&b, "Other participants: %s, and the human candidate %s (you may call them %q).\n",
		strings.Join(t.others, ", "), t.userName, t.userName)
	b.WriteString(`Rules:
- Speak in one to three short sentences, like in a live discussion.
- React to what the previous speaker said before adding your own point.
- Stay in character and on the topic.
- Never say you are an AI or a language model.
- Only address people from the participant list above.
- Do not prefix your reply with your name.`)
	return b.String()
}

func transcriptPrompt(p domain.Participant, t botTurn) string {
	var b strings.Builder
	if len(t.recent) == 0 {
		b.WriteString("The discussion has just started. Open with your view on the topic.\n")
	} else {
		b.WriteString("Recent discussion:\n")
		for _, u := range t.recent {
			fmt.Fprintf(&b, "%s: %s\n", u.Speaker, u.Text)
		}
	}
	if len(t.directives) > 0 {
		b.WriteString("\nModerator notes:\n")
		for _, d := range t.directives {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	fmt.Fprintf(&b, "\nNow reply as %s.", p.Name)
	return b.String()
}

// fallbackLine is the deterministic utterance used when generation fails.
func fallbackLine(p domain.Participant, topic string) string {
	switch strings.ToLower(p.Personality) {
	case "analytical":
		return fmt.Sprintf("%s here. Looking at %s, I think we need clearer evidence before we settle on a position.", p.Name, topic)
	case "creative":
		return fmt.Sprintf("%s here. What if we looked at %s from a completely different angle?", p.Name, topic)
	case "critical":
		return fmt.Sprintf("%s here. I'm not convinced yet; %s carries risks we haven't discussed.", p.Name, topic)
	default:
		return fmt.Sprintf("%s here. I'd like to add another perspective on %s.", p.Name, topic)
	}
}
