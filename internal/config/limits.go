package config

import "time"

const (
	// Complaint
	MaxTitleLength       = 140
	MaxDescriptionLength = 5000
	MaxMediaPerComplaint = 10
	MaxCommentLength     = 1000
	DefaultPageSize      = 20
	MaxPageSize          = 100

	// Reputation
	InitialReputation        = 1000
	MinReputation            = 0
	ConfirmedReportPenalty   = -100
	ConfirmedReportBonus     = 10
	SolvedComplaintReward    = 25
	HideThresholdFlagScore   = 100
	MaxOpenReportsPerUserDay = 20

	// Offline sync
	MaxSyncBatch       = 50
	MaxReplayAttempts  = 5
	ReplayInterval     = 15 * time.Second
	ReplayBatchPerTick = 20

	// Live
	MaxViewersPerSession = 50
	MaxCandidatesPerSide = 64
	SignalBufferSize     = 256
	MaxSignalMessageSize = 64 << 10
	SignalRatePerSecond  = 20
	SignalRateBurst      = 40
	TrendingLimit        = 50
)

// ReportWeights is the flag score each report reason adds to a complaint.
var ReportWeights = map[string]int{
	"duplicate":  10,
	"misleading": 25,
	"spam":       50,
	"abusive":    100,
}
