package customer

import "time"

// Windows holds net spend over trailing windows ending today. A window of
// N days covers orders 0 to N-1 days old; Prev90 covers 90 to 179.
type Windows struct {
	Last30  float64
	Last90  float64
	Prev90  float64
	Last180 float64
	Last365 float64
}

// TimeWindows sums order history into trailing windows. Orders dated
// after today are ignored.
func TimeWindows(history []OrderEvent, today time.Time) Windows {
	var w Windows
	for _, e := range history {
		age := DaysBetween(e.Date, today)
		if age < 0 {
			continue
		}
		if age < 30 {
			w.Last30 += e.Net
		}
		if age < 90 {
			w.Last90 += e.Net
		} else if age < 180 {
			w.Prev90 += e.Net
		}
		if age < 180 {
			w.Last180 += e.Net
		}
		if age < 365 {
			w.Last365 += e.Net
		}
	}
	return w
}
