package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scenesAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_scenes_appended_total",
		Help: "Total number of scenes appended to story sequences.",
	})
	scenesInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_scenes_inserted_total",
		Help: "Total number of scenes inserted at explicit positions.",
	})
	scenesMovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_scenes_moved_total",
		Help: "Total number of scene move operations.",
	})
	storiesReindexedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_stories_reindexed_total",
		Help: "Total number of full order-key reindex passes.",
	})
	narrationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_narrations_created_total",
		Help: "Total number of narration versions created.",
	})
	narrationsActivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_narrations_activated_total",
		Help: "Total number of successful narration activations.",
	})
	activationConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_activation_conflicts_total",
		Help: "Total number of narration activations lost to a concurrent writer.",
	})
	tombstonesSetTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_tombstones_set_total",
		Help: "Total number of soft deletes by resource kind.",
	}, []string{"kind"})
	tombstonesClearedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_tombstones_cleared_total",
		Help: "Total number of restores by resource kind.",
	}, []string{"kind"})
	tombstonesPurgedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_tombstones_purged_total",
		Help: "Total number of physical purges by resource kind.",
	}, []string{"kind"})
	creditsGrantedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_credits_granted_total",
		Help: "Total credits granted to users.",
	})
	creditsConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_credits_consumed_total",
		Help: "Total credits successfully consumed.",
	})
)
