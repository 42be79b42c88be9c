package streak

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/recurrence"
)

func rule(t *testing.T, tag constants.RuleType, config, anchor string) recurrence.Rule {
	t.Helper()
	cfg, err := recurrence.Decode(tag, json.RawMessage(config))
	require.NoError(t, err)
	return recurrence.Rule{ID: "r1", Type: tag, Config: cfg, Anchor: logicalday.MustParse(anchor)}
}

// history builds instances from a compact string: d=done, s=skipped, p=pending, .=missing
func history(start string, marks string) []models.Instance {
	day := logicalday.MustParse(start)
	var out []models.Instance
	for i, m := range marks {
		var status constants.InstanceStatus
		switch m {
		case 'd':
			status = constants.StatusDone
		case 's':
			status = constants.StatusSkipped
		case 'p':
			status = constants.StatusPending
		default:
			continue
		}
		out = append(out, models.Instance{RuleID: "r1", Day: day.AddDays(i), Status: status})
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name    string
		marks   string
		today   string
		current int
		longest int
		done    int
		due     int
	}{
		{"all done", "ddddd", "2024-01-05", 5, 5, 5, 5},
		{"pending today keeps streak", "ddddp", "2024-01-05", 4, 4, 4, 4},
		{"missed yesterday breaks", "dddpd", "2024-01-05", 1, 3, 4, 5},
		{"missing row breaks", "dd.dd", "2024-01-05", 2, 2, 4, 5},
		{"skip is excused", "ddsdd", "2024-01-05", 4, 4, 4, 4},
		{"nothing done", "ppppp", "2024-01-05", 0, 0, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rule(t, constants.RuleDaily, `{}`, "2024-01-01")
			st := Compute(r, history("2024-01-01", tt.marks), logicalday.MustParse(tt.today))
			assert.Equal(t, tt.current, st.Current, "current")
			assert.Equal(t, tt.longest, st.Longest, "longest")
			assert.Equal(t, tt.done, st.Done, "done")
			assert.Equal(t, tt.due, st.Due, "due")
		})
	}
}

func TestComputeSkipsNonDueDays(t *testing.T) {
	// Mondays and Wednesdays; Jan 1 2024 is a Monday
	r := rule(t, constants.RuleWeekly, `{"weekdays":[1,3]}`, "2024-01-01")
	instances := history("2024-01-01", "d.d....d.d")

	st := Compute(r, instances, logicalday.MustParse("2024-01-10"))
	assert.Equal(t, 4, st.Current)
	assert.Equal(t, 4, st.Longest)
	assert.InDelta(t, 1.0, st.CompletionRate, 0.0001)
	require.NotNil(t, st.LastDone)
	assert.Equal(t, "2024-01-10", st.LastDone.String())
}

func TestComputeCompletionRate(t *testing.T) {
	r := rule(t, constants.RuleDaily, `{}`, "2024-01-01")
	st := Compute(r, history("2024-01-01", "dpdp"), logicalday.MustParse("2024-01-05"))
	assert.Equal(t, 4, st.Due)
	assert.InDelta(t, 0.5, st.CompletionRate, 0.0001)
	assert.Equal(t, 0, st.Current)
}

func TestComputeBeforeAnchor(t *testing.T) {
	r := rule(t, constants.RuleDaily, `{}`, "2024-02-01")
	st := Compute(r, nil, logicalday.MustParse("2024-01-15"))
	assert.Equal(t, Stats{}, st)
}
