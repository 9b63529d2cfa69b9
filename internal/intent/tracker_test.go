package intent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-session/internal/model"
)

func TestObserveDetectsTopics(t *testing.T) {
	update := Observe("How should I start investing? Is a SIP better than paying off my loan?", nil)

	require.Equal(t, model.Preferences{
		model.TopicSystematicInvesting: true,
		model.TopicCredit:              true,
	}, update)
}

func TestObserveIsCaseInsensitive(t *testing.T) {
	update := Observe("TAX saving under 80C", model.Preferences{})

	require.True(t, update[model.TopicTax])
	require.True(t, update[model.TopicBudgeting])
}

func TestObserveSkipsKnownTopics(t *testing.T) {
	known := model.Preferences{model.TopicInsurance: true}

	update := Observe("Which term plan and insurance premium?", known)

	require.Empty(t, update)
	require.Equal(t, model.Preferences{model.TopicInsurance: true}, known)
}

func TestObserveRequiresWordStart(t *testing.T) {
	require.Empty(t, Observe("just some gossip about syntax", nil))
	require.True(t, Observe("my sips", nil)[model.TopicSystematicInvesting])
}

func TestPreferencesAreMonotonic(t *testing.T) {
	prefs := model.Preferences{}

	prefs.Merge(Observe("thinking about a budget", prefs))
	require.True(t, prefs[model.TopicBudgeting])

	for _, text := range []string{"", "nothing relevant", "retirement plans", "budget again"} {
		prefs.Merge(Observe(text, prefs))
		require.True(t, prefs[model.TopicBudgeting])
	}
	require.True(t, prefs[model.TopicRetirement])
}
