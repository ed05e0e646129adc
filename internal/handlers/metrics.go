package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// status: success/failure, method: password/google
	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnsphere_auth_attempts_total",
			Help: "Total number of login and registration attempts",
		},
		[]string{"action", "status", "method"},
	)

	quizAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnsphere_quiz_attempts_total",
			Help: "Total number of submitted quiz attempts",
		},
		[]string{"result", "mode"},
	)

	// outcome: persisted/queued/failed
	attemptPersistence = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnsphere_attempt_persistence_total",
			Help: "How submitted attempts were written",
		},
		[]string{"outcome"},
	)

	proctoringEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnsphere_proctoring_events_total",
			Help: "Proctoring events received from live attempts",
		},
		[]string{"kind"},
	)

	reviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnsphere_reviews_total",
			Help: "Course reviews accepted, by rating",
		},
		[]string{"rating"},
	)
)
