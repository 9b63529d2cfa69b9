// Package intent derives coarse preference signals from user-authored text.
package intent

import (
	"strings"

	"github.com/capitalize-ai/assistant-session/internal/model"
)

// Keywords maps a lower-case keyword to the topic it signals. Several
// keywords may point at the same topic.
var Keywords = map[string]model.Topic{
	"sip":                   model.TopicSystematicInvesting,
	"systematic investment": model.TopicSystematicInvesting,
	"mutual fund":           model.TopicSystematicInvesting,
	"invest":                model.TopicSystematicInvesting,
	"step-up":               model.TopicSystematicInvesting,

	"budget":   model.TopicBudgeting,
	"expense":  model.TopicBudgeting,
	"saving":   model.TopicBudgeting,
	"50/30/20": model.TopicBudgeting,

	"credit score": model.TopicCredit,
	"credit card":  model.TopicCredit,
	"loan":         model.TopicCredit,
	"emi":          model.TopicCredit,
	"debt":         model.TopicCredit,

	"tax":    model.TopicTax,
	"80c":    model.TopicTax,
	"itr":    model.TopicTax,
	"regime": model.TopicTax,

	"insurance": model.TopicInsurance,
	"premium":   model.TopicInsurance,
	"term plan": model.TopicInsurance,

	"retire":  model.TopicRetirement,
	"pension": model.TopicRetirement,
	"nps":     model.TopicRetirement,
}

// Observe returns the topics mentioned in text that are not already marked
// in known. It never mutates known and never returns a false entry.
func Observe(text string, known model.Preferences) model.Preferences {
	lower := strings.ToLower(text)

	update := model.Preferences{}
	for keyword, topic := range Keywords {
		if known[topic] || update[topic] {
			continue
		}
		if containsWord(lower, keyword) {
			update[topic] = true
		}
	}
	return update
}

// containsWord reports whether keyword occurs in text starting at a word
// boundary, so "sip" matches "SIP" and "sips" but not "gossip".
func containsWord(text, keyword string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], keyword)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !isWordByte(text[i-1]) {
			return true
		}
		from = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('0' <= b && b <= '9')
}
