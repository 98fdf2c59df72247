package metrics

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/packageutil"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/timeutil"
)

type (
	// Call is the time attributed to one method over a set of stacks.
	Call struct {
		Method    *frame.Method
		TotalTime time.Duration
		SelfTime  time.Duration
	}

	// Row is the tabular representation of a call.
	Row struct {
		FQN              string  `json:"fqn"`
		Module           string  `json:"module"`
		Type             string  `json:"type"`
		Name             string  `json:"name"`
		IsApplication    bool    `json:"is_application"`
		TotalTimeMS      float64 `json:"total_time_ms"`
		SelfTimeMS       float64 `json:"self_time_ms"`
		TotalTime        string  `json:"total_time"`
		SelfTime         string  `json:"self_time"`
		SelfTimeFraction float64 `json:"self_time_fraction"`
	}
)

// SelfTimeFraction returns the share of the total time spent in the method itself.
func (c Call) SelfTimeFraction() float64 {
	if c.TotalTime == 0 {
		return 0
	}
	return float64(c.SelfTime) / float64(c.TotalTime)
}

// Aggregate computes the total and self time of every method found in the
// stacks. The result is not ordered.
func Aggregate(stacks []sample.Stack) []Call {
	calls := make(map[*frame.Method]*Call)
	for _, s := range stacks {
		for _, m := range s.Methods {
			c, ok := calls[m]
			if !ok {
				c = &Call{Method: m}
				calls[m] = c
			}
			c.TotalTime += s.Duration
		}
		calls[s.Top()].SelfTime += s.Duration
	}
	return lo.MapToSlice(calls, func(_ *frame.Method, c *Call) Call {
		return *c
	})
}

// SortBySelfTime sorts the calls by descending self time.
func SortBySelfTime(calls []Call) {
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].SelfTime != calls[j].SelfTime {
			return calls[i].SelfTime > calls[j].SelfTime
		}
		return calls[i].Method.ID < calls[j].Method.ID
	})
}

// SortByTotalTime sorts the calls by descending total time.
func SortByTotalTime(calls []Call) {
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].TotalTime != calls[j].TotalTime {
			return calls[i].TotalTime > calls[j].TotalTime
		}
		return calls[i].Method.ID < calls[j].Method.ID
	})
}

// Top returns at most n calls, n <= 0 returns all calls.
func Top(calls []Call, n int) []Call {
	if n <= 0 || len(calls) <= n {
		return calls
	}
	return calls[:n]
}

// SumSelfTime returns the self time of all calls.
func SumSelfTime(calls []Call) time.Duration {
	return lo.SumBy(calls, func(c Call) time.Duration {
		return c.SelfTime
	})
}

// ToRow formats the call for display. Methods matching one of
// applicationPrefixes are flagged as application code.
func (c Call) ToRow(applicationPrefixes ...string) Row {
	return Row{
		FQN:              c.Method.FQN,
		Module:           c.Method.Module,
		Type:             c.Method.Type,
		Name:             c.Method.Name,
		IsApplication:    packageutil.IsApplicationSymbol(c.Method.FQN, applicationPrefixes...),
		TotalTimeMS:      timeutil.Millis(c.TotalTime),
		SelfTimeMS:       timeutil.Millis(c.SelfTime),
		TotalTime:        timeutil.FormatDuration(c.TotalTime),
		SelfTime:         timeutil.FormatDuration(c.SelfTime),
		SelfTimeFraction: c.SelfTimeFraction(),
	}
}

func ToRows(calls []Call, applicationPrefixes ...string) []Row {
	return lo.Map(calls, func(c Call, _ int) Row {
		return c.ToRow(applicationPrefixes...)
	})
}
