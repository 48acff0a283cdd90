package signals

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/abelbrown/pulse/internal/model"
)

// Flashpoint method names accepted by configuration.
const (
	MethodMaxDay      = "max-day"
	MethodStatistical = "statistical"
)

// DailyCounts returns the number of posts per UTC day, ascending by day.
func DailyCounts(c *model.Collection) []DayCount {
	return dailyCounts(c.Posts())
}

func dailyCounts(posts []model.Post) []DayCount {
	byDay := make(map[time.Time]int)
	for _, p := range posts {
		byDay[p.Date()]++
	}
	days := make([]DayCount, 0, len(byDay))
	for d, n := range byDay {
		days = append(days, DayCount{Day: d, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })
	return days
}

// StatisticalFlashpoint returns every day whose post count exceeds the mean
// plus one sample standard deviation of the daily series. A series with
// fewer than two days has no deviation and yields no flashpoints.
func StatisticalFlashpoint(c *model.Collection) (spikes []DayCount, err error) {
	defer guard("flashpoint_statistical", &err)

	days := DailyCounts(c)
	if len(days) < 2 {
		return nil, nil
	}
	counts := make([]float64, len(days))
	for i, d := range days {
		counts[i] = float64(d.Count)
	}
	mean, std := stat.MeanStdDev(counts, nil)
	threshold := mean + std
	for _, d := range days {
		if float64(d.Count) > threshold {
			spikes = append(spikes, d)
		}
	}
	return spikes, nil
}

// MaxDay is the busiest posting day and its highest scoring posts.
// Found is false on an empty collection.
type MaxDay struct {
	Found bool         `json:"found"`
	Day   time.Time    `json:"day"`
	Count int          `json:"count"`
	Posts []model.Post `json:"posts"`
}

// String renders the day as YYYY-MM-DD, or "none".
func (m MaxDay) String() string {
	if !m.Found {
		return "none"
	}
	return m.Day.Format("2006-01-02")
}

// MaxDayFlashpoint returns the single day with the most posts, the earliest
// one on ties, with up to topPosts of that day's posts by descending score.
func MaxDayFlashpoint(c *model.Collection, topPosts int) (spike MaxDay, err error) {
	defer guard("flashpoint_max_day", &err)

	days := DailyCounts(c)
	if len(days) == 0 {
		return MaxDay{}, nil
	}
	best := days[0]
	for _, d := range days[1:] {
		if d.Count > best.Count {
			best = d
		}
	}

	posts, _ := c.Filter(func(p model.Post) bool { return p.Date().Equal(best.Day) })
	return MaxDay{
		Found: true,
		Day:   best.Day,
		Count: best.Count,
		Posts: topByScore(posts, topPosts),
	}, nil
}
