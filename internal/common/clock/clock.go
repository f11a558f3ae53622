package clock

import (
	"time"

	"go-groupware/internal/config"
)

// Clock supplies "now" to the approval engine so tests can pin it.
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	loc *time.Location
}

// NewClock returns a Clock in the configured time zone. An unknown zone name
// falls back to UTC rather than failing startup.
func NewClock(cfg *config.Config) Clock {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	return &zoneClock{loc: loc}
}

func (c *zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}
