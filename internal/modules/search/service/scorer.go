package service

import (
	"strings"

	"locki.app/backend/internal/entity"
)

// User relevance, highest matching rule wins.
const (
	scoreUsernameExact       = 100
	scoreDisplayNameExact    = 90
	scoreUsernamePrefix      = 80
	scoreDisplayNamePrefix   = 70
	scoreUsernameContains    = 60
	scoreDisplayNameContains = 50
)

const (
	scoreTitleContains       = 80
	scoreDescriptionContains = 40
)

// ScoreUser rates how well a profile matches a lower-cased query. Zero means no match.
func ScoreUser(u *entity.User, query string) int {
	username := strings.ToLower(u.Username)
	displayName := strings.ToLower(u.DisplayName)

	switch {
	case username == query:
		return scoreUsernameExact
	case displayName == query:
		return scoreDisplayNameExact
	case strings.HasPrefix(username, query):
		return scoreUsernamePrefix
	case strings.HasPrefix(displayName, query):
		return scoreDisplayNamePrefix
	case strings.Contains(username, query):
		return scoreUsernameContains
	case strings.Contains(displayName, query):
		return scoreDisplayNameContains
	}
	return 0
}

func ScorePost(p *entity.Post, query string) int {
	switch {
	case strings.Contains(strings.ToLower(p.Title), query):
		return scoreTitleContains
	case strings.Contains(strings.ToLower(p.Description), query):
		return scoreDescriptionContains
	}
	return 0
}
