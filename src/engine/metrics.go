package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var contributionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "preco_contributions_processed",
	Help: "contributions recorded, labelled by validation outcome",
}, []string{"outcome"})

var voteCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "preco_votes_cast",
	Help: "suggestion votes recorded",
})

var suggestionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "preco_suggestion_transitions",
	Help: "suggestion lifecycle transitions, labelled by resulting status",
}, []string{"status"})

var tokensMinted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "preco_tokens_minted",
	Help: "tokens minted as contribution rewards",
})
