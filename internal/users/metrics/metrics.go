package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the user lifecycle.
type Metrics struct {
	Invited   prometheus.Counter
	Confirmed prometheus.Counter
	Archived  prometheus.Counter
}

// New creates a new Metrics instance with all user module metrics registered.
func New() *Metrics {
	return &Metrics{
		Invited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "profreg_users_invited_total",
			Help: "Total number of users invited",
		}),
		Confirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "profreg_users_confirmed_total",
			Help: "Total number of invitations confirmed through login-identity linkage",
		}),
		Archived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "profreg_users_archived_total",
			Help: "Total number of users archived",
		}),
	}
}

// IncrementInvited records a user invitation.
func (m *Metrics) IncrementInvited() {
	if m == nil {
		return
	}
	m.Invited.Inc()
}

// IncrementConfirmed records a confirmed invitation.
func (m *Metrics) IncrementConfirmed() {
	if m == nil {
		return
	}
	m.Confirmed.Inc()
}

// IncrementArchived records a user archival.
func (m *Metrics) IncrementArchived() {
	if m == nil {
		return
	}
	m.Archived.Inc()
}
