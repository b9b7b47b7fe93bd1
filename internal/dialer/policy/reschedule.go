package policy

import "time"

// NextEligibleSlot computes the next valid calling slot after now: tomorrow
// at the opening business hour, local time. If tomorrow falls on a Saturday
// or Sunday the slot rolls forward to Monday. The result is always a weekday
// at the opening hour.
func (p *Policy) NextEligibleSlot(now time.Time) time.Time {
	local := now.In(p.location)
	slot := time.Date(local.Year(), local.Month(), local.Day(), p.hourStart, 0, 0, 0, p.location)
	slot = slot.AddDate(0, 0, 1)

	for slot.Weekday() == time.Saturday || slot.Weekday() == time.Sunday {
		slot = slot.AddDate(0, 0, 1)
	}

	return slot
}
