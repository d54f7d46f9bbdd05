package evaluation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

const evaluatorSystemPrompt = `You are an experienced group discussion assessor for campus placements and interviews.
You evaluate ONLY the human candidate (speaker id "user"). The other speakers are AI participants.

Judge how the candidate communicated, not whether their facts were correct:
- verbalAbility: clarity, vocabulary, sentence structure
- confidence: assertiveness and composure
- interactivity: building on others, responding when addressed, inviting others in
- argumentQuality: reasoning, examples, structure of points
- topicRelevance: staying on the topic
- leadership: steering the discussion, summarising, moving it forward

Every score is an integer from 0 to 100. overallScore reflects all six.
Respond with a single JSON object and nothing else:
{"verbalAbility":0,"confidence":0,"interactivity":0,"argumentQuality":0,"topicRelevance":0,"leadership":0,"overallScore":0,"feedback":"2-4 sentences addressed to the candidate","strengths":["..."],"improvements":["..."]}`

func buildTranscriptPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %q\nDifficulty: %s\n", in.Topic, in.Difficulty)
	fmt.Fprintf(&b, "Planned duration: %s, actual: %s\n", in.Expected.Round(time.Second), in.Elapsed.Round(time.Second))
	fmt.Fprintf(&b, "Candidate turns: %d of %d total\n", in.TurnCounts[domain.HumanID], len(in.Transcript))
	fmt.Fprintf(&b, "Pauses requested by the candidate: %d\n\n", in.PauseCount)

	b.WriteString("Transcript:\n")
	for _, u := range in.Transcript {
		label := u.Speaker
		if u.Role == domain.RoleUser {
			label = "user (candidate)"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, u.Text)
	}
	return b.String()
}
