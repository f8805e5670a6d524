package ingest

import (
	"github.com/jamesprial/colony-directory/pkg/directory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion outcomes.
const (
	OutcomeIngested  = "ingested"
	OutcomeLoaded    = "loaded"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

var (
	ingestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colony_directory_ingestions_total",
		Help: "Ingestion cycles by outcome",
	}, []string{"outcome"})

	snapshotPeople = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "colony_directory_snapshot_people",
		Help: "People in the published snapshot",
	})

	snapshotCompanies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "colony_directory_snapshot_companies",
		Help: "Companies in the published snapshot",
	})

	snapshotFriendships = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "colony_directory_snapshot_friendships",
		Help: "Distinct declared friend edges in the published snapshot",
	})
)

func recordSnapshot(stats directory.Stats) {
	snapshotPeople.Set(float64(stats.People))
	snapshotCompanies.Set(float64(stats.Companies))
	snapshotFriendships.Set(float64(stats.Friendships))
}
