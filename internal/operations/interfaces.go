package operations

import "climatedash/pkg/contracts/events"

// ProgressReporter receives run snapshots as steps change state
type ProgressReporter interface {
	ReportProgress(snapshot events.OperationSnapshot)
	ReportComplete(snapshot events.OperationSnapshot)
}
