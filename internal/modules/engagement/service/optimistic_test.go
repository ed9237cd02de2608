package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimisticCommit(t *testing.T) {
	state := NewOptimistic(LikeState{Liked: false, Count: 4})

	shown := state.Apply(state.Value().Toggled())
	assert.Equal(t, LikeState{Liked: true, Count: 5}, shown)
	assert.Equal(t, shown, state.Value())

	assert.Equal(t, LikeState{Liked: true, Count: 5}, state.Resolve(nil))
}

func TestOptimisticRollback(t *testing.T) {
	state := NewOptimistic(LikeState{Liked: true, Count: 1})

	state.Apply(state.Value().Toggled())
	assert.Equal(t, LikeState{Liked: false, Count: 0}, state.Value())

	// A second tentative change still rolls back to the original value.
	state.Apply(LikeState{Liked: true, Count: 9})

	assert.Equal(t, LikeState{Liked: true, Count: 1}, state.Resolve(errors.New("offline")))
	assert.Equal(t, LikeState{Liked: true, Count: 1}, state.Value())
}

func TestLikeStateToggledClamps(t *testing.T) {
	assert.Equal(t, LikeState{Liked: false, Count: 0}, LikeState{Liked: true, Count: 0}.Toggled())
}
