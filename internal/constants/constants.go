package constants

// Session
const (
	SessionCookieName = "momentum_session"
	ContextKeyUserID  = "user_id"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
	MinHandleLength   = 3
	MaxHandleLength   = 30
)

// Scoring
const (
	XPPerDifficultyPoint = 100
	DefaultDifficulty    = 3
	MinDifficulty        = 1
	MaxDifficulty        = 5
)

// Projects
const (
	// MinProjectParticipants is the minimum number of active participants a
	// project needs before tasks can be created in it.
	MinProjectParticipants = 2
)

// Recurrence defaults. These are policy, not invariants; the effective values
// come from config so deployments can tune them.
const (
	DefaultDailyOccurrenceCap  = 28
	DefaultWeeklyOccurrenceCap = 4
	MaxOccurrenceCap           = 999
)
