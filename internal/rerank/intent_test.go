package rerank

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyFactualQuestion(t *testing.T) {
	c := Classify("what is the capital of France?")
	require.Equal(t, IntentFactual, c.Intent)
}

func TestClassifyTemporalQuestion(t *testing.T) {
	c := Classify("what happened yesterday at the meeting")
	require.Equal(t, IntentTemporal, c.Intent)
}

func TestClassifyCausalQuestion(t *testing.T) {
	c := Classify("why did the deployment fail")
	require.Equal(t, IntentCausal, c.Intent)
}

func TestClassifyExploratoryQuestion(t *testing.T) {
	c := Classify("tell me about the project history")
	require.Equal(t, IntentExploratory, c.Intent)
}

func TestClassifyShortUnmatchedQueryBiasesFactual(t *testing.T) {
	c := Classify("blue sky")
	require.Equal(t, IntentFactual, c.Intent)
	require.Equal(t, 0.5, c.Confidence)
}

func TestStrategyForFactualHasHardLimitFive(t *testing.T) {
	s := StrategyFor(IntentFactual)
	require.Equal(t, 5, s.HardLimit)
	require.True(t, s.BoostPriority)
	require.False(t, s.BoostRecent)
}

func TestStrategyForTemporalBoostsRecent(t *testing.T) {
	s := StrategyFor(IntentTemporal)
	require.True(t, s.BoostRecent)
	require.Equal(t, 10, s.HardLimit)
}
