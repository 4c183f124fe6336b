package models

import (
	"sync"
	"time"
)

// Upstream schedule timestamps carry no timezone marker; every instant
// comparison goes through this single business-timezone anchor.
const businessTimezone = "America/La_Paz"

var (
	businessLocOnce sync.Once
	businessLoc     *time.Location
)

func BusinessLocation() *time.Location {
	businessLocOnce.Do(func() {
		loc, err := time.LoadLocation(businessTimezone)
		if err != nil {
			loc = time.FixedZone("-04", -4*60*60)
		}
		businessLoc = loc
	})
	return businessLoc
}
