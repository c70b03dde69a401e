package weather

import "time"

// DateHour converts a timestamp to the (date, hour) encoding used by stored
// observations: hours run 1-24 and clock hour 0 belongs to the previous
// date as hour 24. Both ingestion window trimming and query resolution go
// through this function so the two cannot drift apart.
func DateHour(t time.Time) (date int, hour int) {
	hour = t.Hour()
	if hour == 0 {
		t = t.Add(-time.Hour)
		hour = 24
	}
	date = t.Year()*10000 + int(t.Month())*100 + t.Day()
	return date, hour
}
