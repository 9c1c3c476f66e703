package timing

import (
	"sort"
	"time"
)

// StageSummary aggregates one stage over all files.
type StageSummary struct {
	Stage Stage
	Files int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	// First and Last are the earliest start and latest end, in seconds since the origin.
	First float64
	Last  float64
}

// Mean returns the average duration of the stage.
func (s StageSummary) Mean() time.Duration {
	if s.Files == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Files)
}

// Wall returns the time between the first start and the last end of the stage.
// With concurrent workers it is shorter than Total.
func (s StageSummary) Wall() time.Duration {
	return time.Duration((s.Last - s.First) * float64(time.Second))
}

// Summarize returns one summary per stage present in records, in pipeline order.
// Unfinished spans are skipped.
func Summarize(records Records) []StageSummary {
	byStage := make(map[Stage]*StageSummary)
	for _, spans := range records {
		for stage, span := range spans {
			if span.End == 0 {
				continue
			}
			d := span.Duration()
			s, ok := byStage[stage]
			if !ok {
				s = &StageSummary{Stage: stage, Min: d, Max: d, First: span.Start, Last: span.End}
				byStage[stage] = s
			}
			s.Files++
			s.Total += d
			s.Min = min(s.Min, d)
			s.Max = max(s.Max, d)
			s.First = min(s.First, span.Start)
			s.Last = max(s.Last, span.End)
		}
	}

	summaries := make([]StageSummary, 0, len(byStage))
	for _, stage := range Stages {
		if s, ok := byStage[stage]; ok {
			summaries = append(summaries, *s)
			delete(byStage, stage)
		}
	}
	// stages this package does not know about go last, sorted by name
	var rest []StageSummary
	for _, s := range byStage {
		rest = append(rest, *s)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Stage < rest[j].Stage })

	return append(summaries, rest...)
}

// Indexes returns the file indexes of records in ascending order.
func (r Records) Indexes() []int {
	indexes := make([]int, 0, len(r))
	for index := range r {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	return indexes
}
