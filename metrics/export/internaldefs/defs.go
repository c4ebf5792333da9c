package internaldefs

import (
	"github.com/MrEthical07/sessionguard"
)

// CounterDef binds a governor counter to its exported name.
type CounterDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// HistogramDef binds a governor histogram to its exported name.
type HistogramDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher backpressure drops.
const AuditDroppedName = "sessionguard_audit_dropped_total"

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: sessionguard.MetricFailedAttempt, Name: "sessionguard_failed_attempt_total", Help: "Failed login attempts counted against an open account."},
	{ID: sessionguard.MetricAccountLocked, Name: "sessionguard_account_locked_total", Help: "Lockouts triggered by crossing the attempt threshold."},
	{ID: sessionguard.MetricLockedRejected, Name: "sessionguard_locked_rejected_total", Help: "Attempts rejected because the account was already locked."},
	{ID: sessionguard.MetricLockoutReset, Name: "sessionguard_lockout_reset_total", Help: "Administrative lockout resets."},
	{ID: sessionguard.MetricSessionAdded, Name: "sessionguard_session_added_total", Help: "Sessions added to an account."},
	{ID: sessionguard.MetricSessionRevoked, Name: "sessionguard_session_revoked_total", Help: "Session ids revoked, including evictions."},
	{ID: sessionguard.MetricSessionEvicted, Name: "sessionguard_session_evicted_total", Help: "Sessions evicted by the per-account maximum."},
	{ID: sessionguard.MetricSessionPruned, Name: "sessionguard_session_pruned_total", Help: "Stale session bookkeeping entries pruned."},
	{ID: sessionguard.MetricRevokeAll, Name: "sessionguard_revoke_all_total", Help: "Revoke-all operations."},
	{ID: sessionguard.MetricWipeBatch, Name: "sessionguard_wipe_batch_total", Help: "Completed batches of the system-wide session wipe."},
	{ID: sessionguard.MetricWipedSessions, Name: "sessionguard_wiped_sessions_total", Help: "Sessions destroyed by the system-wide session wipe."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionguard.MetricAddSessionLatency, Name: "sessionguard_add_session_latency_seconds", Help: "AddSession latency histogram."},
}

// HistogramBounds are the bucket labels in exposition order.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite upper bounds in seconds. The eighth
// bucket is the implicit +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
