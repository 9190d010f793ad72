package cache

import "time"

// Timer is the clock source used for all expiration arithmetic. Injecting a
// fake timer makes TTL behavior deterministic in tests; the unit of time is
// whatever the timer returns, not necessarily the wall clock.
type Timer func() time.Time

// NoExpiry is returned by GetTTL for live entries that never expire.
const NoExpiry time.Duration = -1
