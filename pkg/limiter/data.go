package limiter

import "time"

// timing-related data used to pace requests sent to a host
type hostTiming struct {
	lastFetchAt time.Time
}
