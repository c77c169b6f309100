package employee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyHours(t *testing.T) {
	assert.Equal(t, 6, Employee{ScheduledHours: 6}.DailyHours(7))
	assert.Equal(t, 7, Employee{}.DailyHours(7))
	assert.Equal(t, DefaultScheduledHours, Employee{}.DailyHours(0))
	assert.Equal(t, DefaultScheduledHours, Employee{ScheduledHours: -1}.DailyHours(-1))
}

func TestReportsTo(t *testing.T) {
	manager := "m-1"
	e := Employee{ManagerID: &manager}
	assert.True(t, e.ReportsTo("m-1"))
	assert.False(t, e.ReportsTo("m-2"))
	assert.False(t, e.ReportsTo(""))
	assert.False(t, Employee{}.ReportsTo("m-1"))
}
