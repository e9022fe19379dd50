// Package rerank implements intent classification and candidate reranking
// for recall results (spec §4.8).
package rerank

import (
	"regexp"

	"github.com/agentmem/engine/internal/tokenize"
)

// Intent is one of the four recognised query buckets.
type Intent string

const (
	IntentFactual     Intent = "factual"
	IntentTemporal    Intent = "temporal"
	IntentCausal      Intent = "causal"
	IntentExploratory Intent = "exploratory"
)

// Classification is the intent classifier's output.
type Classification struct {
	Intent     Intent
	Confidence float64
}

// bucketPatterns holds bilingual regex sets per intent bucket, each with an
// additional set of "anchored" patterns that add a 0.5 structural boost
// (spec §4.8: "Additional structural boosts add 0.5 for anchored patterns").
type bucketPatterns struct {
	patterns []*regexp.Regexp
	anchored []*regexp.Regexp
}

var buckets = map[Intent]bucketPatterns{
	IntentFactual: {
		patterns: compileAll(
			`(?i)\bwhat is\b`, `(?i)\bwho is\b`, `(?i)\bwhere is\b`, `(?i)\bhow many\b`,
			`什么是`, `谁是`, `哪里`,
		),
		anchored: compileAll(`(?i)^what\b`, `(?i)^who\b`, `^什么`, `^谁`),
	},
	IntentTemporal: {
		patterns: compileAll(
			`(?i)\bwhen\b`, `(?i)\byesterday\b`, `(?i)\btoday\b`, `(?i)\blast (week|month|year)\b`,
			`\d{4}-\d{2}-\d{2}`, `什么时候`, `昨天`, `今天`, `去年`,
		),
		anchored: compileAll(`(?i)^when\b`, `^什么时候`),
	},
	IntentCausal: {
		patterns: compileAll(
			`(?i)\bwhy\b`, `(?i)\bbecause\b`, `(?i)\bcaused by\b`, `(?i)\bleads? to\b`,
			`为什么`, `因为`, `导致`,
		),
		anchored: compileAll(`(?i)^why\b`, `^为什么`),
	},
	IntentExploratory: {
		patterns: compileAll(
			`(?i)\btell me about\b`, `(?i)\bexplore\b`, `(?i)\bdiscuss\b`, `(?i)\bwhat do you think\b`,
			`谈谈`, `探讨`, `介绍一下`,
		),
		anchored: compileAll(`(?i)^tell me\b`, `^谈谈`),
	},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// Classify scores the four intent buckets against query and returns the
// winner with a confidence in [0, 0.95] (spec §4.8).
func Classify(query string) Classification {
	scores := make(map[Intent]float64, len(buckets))
	var total float64

	for intent, bp := range buckets {
		var score float64
		for _, p := range bp.patterns {
			if p.MatchString(query) {
				score += 1.0
			}
		}
		for _, p := range bp.anchored {
			if p.MatchString(query) {
				score += 0.5
			}
		}
		scores[intent] = score
		total += score
	}

	if total == 0 && len(tokenize.Tokenize(query)) <= 3 {
		return Classification{Intent: IntentFactual, Confidence: 0.5}
	}
	if total == 0 {
		return Classification{Intent: IntentFactual, Confidence: 0.5}
	}

	var best Intent
	var bestScore float64
	// Deterministic iteration order for ties: factual > temporal > causal >
	// exploratory, matching the table order in spec §4.8.
	for _, intent := range []Intent{IntentFactual, IntentTemporal, IntentCausal, IntentExploratory} {
		if scores[intent] > bestScore {
			bestScore = scores[intent]
			best = intent
		}
	}

	confidence := bestScore / total
	if confidence > 0.95 {
		confidence = 0.95
	}
	return Classification{Intent: best, Confidence: confidence}
}

// Strategy is the retrieval-shaping policy attached to each intent (spec
// §4.8's boost table).
type Strategy struct {
	BoostRecent   bool
	BoostPriority bool
	HardLimit     int
}

var strategies = map[Intent]Strategy{
	IntentFactual:     {BoostRecent: false, BoostPriority: true, HardLimit: 5},
	IntentTemporal:    {BoostRecent: true, BoostPriority: false, HardLimit: 10},
	IntentCausal:      {BoostRecent: false, BoostPriority: false, HardLimit: 10},
	IntentExploratory: {BoostRecent: false, BoostPriority: false, HardLimit: 15},
}

// StrategyFor returns the boost/limit policy for intent.
func StrategyFor(intent Intent) Strategy {
	if s, ok := strategies[intent]; ok {
		return s
	}
	return strategies[IntentFactual]
}
