package ldap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// syncRecords counts reconciliation outcomes per mode, table and action.
var syncRecords = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "ldap_sync_records_total",
		Help: "Number of records processed by directory synchronization, differentiated by outcome.",
	},
	[]string{"mode", "table", "action"},
)
