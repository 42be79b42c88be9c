package ics

import (
	"strings"
	"testing"
	"time"

	_ "time/tzdata"

	ical "github.com/arran4/golang-ical"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

func TestExport(t *testing.T) {
	owners := Owners{
		Habits: map[string]models.Habit{
			"read":    {ID: "read", Name: "Read", LocalTime: "07:30"},
			"stretch": {ID: "stretch", Name: "Stretch"},
		},
		Transactions: map[string]models.RecurringTransaction{
			"rent": {ID: "rent", Name: "Rent", Currency: "USD", Category: "housing"},
		},
	}
	day := logicalday.MustParse("2024-03-10")
	instances := []models.Instance{
		{ID: "i1", OwnerKind: constants.OwnerHabit, OwnerID: "read", Day: day, Status: constants.StatusPending},
		{ID: "i2", OwnerKind: constants.OwnerHabit, OwnerID: "stretch", Day: day, Status: constants.StatusSkipped},
		{ID: "i3", OwnerKind: constants.OwnerTransaction, OwnerID: "rent", Day: day, Status: constants.StatusDone, Amount: decimal.RequireFromString("-1200")},
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	out, err := Export(instances, owners, "America/New_York", now)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	byUID := make(map[string]*ical.VEvent)
	for _, e := range events {
		byUID[e.GetProperty(ical.ComponentPropertyUniqueId).Value] = e
	}

	read := byUID["i1@lifeplan"]
	require.NotNil(t, read)
	assert.Equal(t, "Read", read.GetProperty(ical.ComponentPropertySummary).Value)
	// 07:30 EDT on the spring-forward day is 11:30 UTC
	assert.Equal(t, "20240310T113000Z", read.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240310T120000Z", read.GetProperty(ical.ComponentPropertyDtEnd).Value)

	stretch := byUID["i2@lifeplan"]
	require.NotNil(t, stretch)
	assert.Equal(t, "20240310", stretch.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240311", stretch.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, string(ical.ObjectStatusCancelled), stretch.GetProperty(ical.ComponentPropertyStatus).Value)

	rent := byUID["i3@lifeplan"]
	require.NotNil(t, rent)
	assert.Equal(t, "Rent -1200.00 USD", rent.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "housing", rent.GetProperty(ical.ComponentPropertyCategories).Value)
	assert.Equal(t, string(ical.ObjectStatusConfirmed), rent.GetProperty(ical.ComponentPropertyStatus).Value)
}

func TestExportRejectsBadLocalTime(t *testing.T) {
	owners := Owners{Habits: map[string]models.Habit{"h": {ID: "h", Name: "H", LocalTime: "25:99"}}}
	instances := []models.Instance{{ID: "x", OwnerKind: constants.OwnerHabit, OwnerID: "h", Day: logicalday.MustParse("2024-01-01")}}

	_, err := Export(instances, owners, "UTC", time.Now())
	assert.Error(t, err)
}

func TestExportEmpty(t *testing.T) {
	out, err := Export(nil, Owners{}, "UTC", time.Now())
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "METHOD:PUBLISH")
}
