// Package metrics exposes Prometheus counters for the vault's hot paths.
// The collectors register themselves on the default registry; the HTTP layer
// serves them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login outcomes by result:
	// "success", "invalid_credentials", "locked_out".
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credvault_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"result"})

	// Lockouts counts throttle engagements.
	Lockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credvault_lockouts_total",
		Help: "Times the login throttle rejected an attempt.",
	})

	// ResetTokensIssued counts password-reset tokens minted.
	ResetTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credvault_reset_tokens_issued_total",
		Help: "Password-reset tokens issued.",
	})

	// ResetTokensConsumed counts successful reset confirmations.
	ResetTokensConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credvault_reset_tokens_consumed_total",
		Help: "Password-reset tokens consumed.",
	})

	// FileWrites counts credential payload writes to the file store.
	FileWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credvault_filestore_writes_total",
		Help: "Credential files written.",
	})

	// ArchiveExports counts archive downloads and backups.
	ArchiveExports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credvault_archive_exports_total",
		Help: "User archives exported.",
	})
)
