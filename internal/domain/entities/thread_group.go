package entities

import "time"

const (
	ThreadGroupToday     = "today"
	ThreadGroupYesterday = "yesterday"
	ThreadGroupLastWeek  = "last_7_days"
	ThreadGroupOlder     = "older"
)

var threadGroupLabels = map[string]string{
	ThreadGroupToday:     "Today",
	ThreadGroupYesterday: "Yesterday",
	ThreadGroupLastWeek:  "Last 7 days",
	ThreadGroupOlder:     "Older",
}

// ThreadGroup is one sidebar section of threads sharing an age bucket.
type ThreadGroup struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Threads []*Thread `json:"threads"`
}

// GroupThreads buckets threads by how many whole days have passed since
// they were created. Every bucket is returned, even when empty, in the
// order today, yesterday, last 7 days, older. Input order is kept within a
// bucket.
func GroupThreads(threads []*Thread, now time.Time) []ThreadGroup {
	keys := []string{ThreadGroupToday, ThreadGroupYesterday, ThreadGroupLastWeek, ThreadGroupOlder}
	byKey := make(map[string][]*Thread, len(keys))
	for _, thread := range threads {
		key := threadGroupKey(dayDifference(now, thread.CreatedAt()))
		byKey[key] = append(byKey[key], thread)
	}

	groups := make([]ThreadGroup, 0, len(keys))
	for _, key := range keys {
		members := byKey[key]
		if members == nil {
			members = []*Thread{}
		}
		groups = append(groups, ThreadGroup{Key: key, Label: threadGroupLabels[key], Threads: members})
	}
	return groups
}

// dayDifference counts full 24 hour periods between the two instants,
// truncated toward zero.
func dayDifference(now, then time.Time) int {
	return int(now.Sub(then).Hours() / 24)
}

func threadGroupKey(days int) string {
	switch {
	case days == 0:
		return ThreadGroupToday
	case days == 1:
		return ThreadGroupYesterday
	case days <= 7:
		return ThreadGroupLastWeek
	default:
		return ThreadGroupOlder
	}
}
