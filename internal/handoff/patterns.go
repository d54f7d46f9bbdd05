package handoff

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// phraseTemplates are handoff phrasings; %s is the quoted participant name.
var phraseTemplates = []string{
	`\b(?:what|how) (?:does|do|would|might) %s (?:think|feel|see)\b`,
	`\bi(?:'d|’d| would)(?: like to| want to)? ask %s\b`,
	`\b%s\b[,:]?\s+(?:what(?:'s|’s| is| are)\s+)?your\s+(?:opinion|thoughts|views?|take)\b`,
	`\b%s\b,?\s+what do you think\b`,
	`\bwhat do you think,?\s+%s\b`,
	`\b(?:over to|let's hear from|let us hear from|passing it to|handing it over to) %s\b`,
}

// Patterns is the phrase-based fallback used when classification is unavailable.
type Patterns struct {
	mu    sync.Mutex
	cache map[string][]*regexp.Regexp
}

// NewPatterns creates the fallback strategy.
func NewPatterns() *Patterns {
	return &Patterns{cache: make(map[string][]*regexp.Regexp)}
}

// Name implements Strategy.
func (p *Patterns) Name() string { return "pattern" }

// Detect implements Strategy. When several participants match, the earliest mention wins.
func (p *Patterns) Detect(_ context.Context, text string, candidates []Candidate) (string, bool) {
	lower := strings.ToLower(text)
	best, bestPos := "", -1
	for _, c := range candidates {
		for _, name := range c.Names {
			for _, re := range p.compiled(name) {
				loc := re.FindStringIndex(lower)
				if loc != nil && (bestPos < 0 || loc[0] < bestPos) {
					best, bestPos = c.ID, loc[0]
				}
			}
		}
	}
	return best, bestPos >= 0
}

func (p *Patterns) compiled(name string) []*regexp.Regexp {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res, ok := p.cache[name]; ok {
		return res
	}
	quoted := regexp.QuoteMeta(name)
	res := make([]*regexp.Regexp, 0, len(phraseTemplates))
	for _, tpl := range phraseTemplates {
		res = append(res, regexp.MustCompile(fmt.Sprintf(tpl, quoted)))
	}
	p.cache[name] = res
	return res
}
