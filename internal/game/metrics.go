package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novel_game_turns_accepted_total",
		Help: "Total number of player choices folded into the transcript.",
	})
	choicesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novel_game_choices_dropped_total",
		Help: "Total number of player choices rejected outside the accepting window.",
	})
	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novel_game_failures_total",
		Help: "Total number of failure events reported to the UI.",
	}, []string{"kind"}) // kind: stream, image
	transcriptTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "novel_game_transcript_tokens",
		Help: "Estimated token count of the current transcript.",
	})
)
