package schedule

import (
	"fmt"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

const lookaheadDays = 3

// specialDays maps "month-day" to the Indonesian occasion name.
var specialDays = map[string]string{
	"1-1":   "Tahun Baru",
	"2-14":  "Hari Valentine",
	"4-21":  "Hari Kartini",
	"5-1":   "Hari Buruh",
	"6-1":   "Hari Lahir Pancasila",
	"8-17":  "Kemerdekaan Indonesia",
	"10-2":  "Hari Batik Nasional",
	"10-28": "Sumpah Pemuda",
	"11-10": "Hari Pahlawan",
	"12-22": "Hari Ibu",
	"12-25": "Natal",
}

// DetectSpecialDays returns today's occasion and, when one falls three days
// ahead, a "Persiapan" entry for it. Dates use date's own location.
func DetectSpecialDays(date time.Time) []contractx.SpecialDay {
	var out []contractx.SpecialDay
	if name, ok := specialDays[monthDay(date)]; ok {
		out = append(out, contractx.SpecialDay{Name: name, Date: date.Format(time.DateOnly)})
	}

	upcoming := date.AddDate(0, 0, lookaheadDays)
	if name, ok := specialDays[monthDay(upcoming)]; ok {
		out = append(out, contractx.SpecialDay{Name: "Persiapan " + name, Date: upcoming.Format(time.DateOnly)})
	}
	return out
}

func monthDay(t time.Time) string {
	return fmt.Sprintf("%d-%d", int(t.Month()), t.Day())
}
