package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWeekKey(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{"2026-10-18", "2026-10-24"}, // Sunday starts the week
		{"2026-10-21", "2026-10-24"},
		{"2026-10-24", "2026-10-24"}, // Saturday ends it
		{"2026-12-31", "2027-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			day, err := time.Parse("2006-01-02", tt.day)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, WeekKey(day.Add(15*time.Hour)))
		})
	}
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2026-02", MonthKey(time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC)))
}

func TestCanonicalPair(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	x1, y1 := CanonicalPair(a, b)
	x2, y2 := CanonicalPair(b, a)

	assert.Equal(t, a, x1)
	assert.Equal(t, b, y1)
	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)
}

func TestConversationOther(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c := Conversation{ParticipantA: a, ParticipantB: b}

	assert.Equal(t, b, c.Other(a))
	assert.Equal(t, a, c.Other(b))
	assert.True(t, c.HasParticipant(a))
	assert.False(t, c.HasParticipant(uuid.New()))
}

func TestPostDurationMinutes(t *testing.T) {
	p := Post{Hours: 2, Minutes: 15}
	assert.Equal(t, int64(135), p.DurationMinutes())
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, VisibilityBuddiesOnly.Valid())
	assert.False(t, Visibility("friends").Valid())
	assert.True(t, MessagePost.Valid())
	assert.False(t, MessageType("video").Valid())
}
