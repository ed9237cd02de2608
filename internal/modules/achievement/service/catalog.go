package service

import (
	"locki.app/backend/internal/entity"
	"locki.app/backend/internal/modules/achievement/dto"
)

type metric func(stats entity.UserStats) int64

func totalPosts(s entity.UserStats) int64    { return s.TotalPosts }
func totalHours(s entity.UserStats) int64    { return s.TotalMinutes / 60 }
func longestStreak(s entity.UserStats) int64 { return int64(s.LongestStreak) }
func buddyCount(s entity.UserStats) int64    { return s.BuddyCount }
func likesGiven(s entity.UserStats) int64    { return s.TotalLikes }
func commentsMade(s entity.UserStats) int64  { return s.TotalComments }

type catalogEntry struct {
	dto.Achievement
	metric metric
}

// Catalog is the fixed list of achievements in display order.
var Catalog = []catalogEntry{
	{dto.Achievement{ID: "first_post", Title: "First Steps", Description: "Share your first work session", Icon: "flag", Category: dto.CategoryMilestone, Requirement: 1, Points: 10}, totalPosts},
	{dto.Achievement{ID: "posts_10", Title: "Getting Consistent", Description: "Share 10 work sessions", Icon: "doc.on.doc", Category: dto.CategoryProductivity, Requirement: 10, Points: 25}, totalPosts},
	{dto.Achievement{ID: "posts_50", Title: "Prolific", Description: "Share 50 work sessions", Icon: "books.vertical", Category: dto.CategoryProductivity, Requirement: 50, Points: 100}, totalPosts},
	{dto.Achievement{ID: "hours_10", Title: "Ten Hour Club", Description: "Log 10 hours of work", Icon: "clock", Category: dto.CategoryTime, Requirement: 10, Points: 25}, totalHours},
	{dto.Achievement{ID: "hours_100", Title: "Centurion", Description: "Log 100 hours of work", Icon: "hourglass", Category: dto.CategoryTime, Requirement: 100, Points: 150}, totalHours},
	{dto.Achievement{ID: "streak_3", Title: "Warming Up", Description: "Post 3 days in a row", Icon: "flame", Category: dto.CategoryStreak, Requirement: 3, Points: 15}, longestStreak},
	{dto.Achievement{ID: "streak_7", Title: "On a Roll", Description: "Post 7 days in a row", Icon: "flame.fill", Category: dto.CategoryStreak, Requirement: 7, Points: 50}, longestStreak},
	{dto.Achievement{ID: "streak_30", Title: "Unstoppable", Description: "Post 30 days in a row", Icon: "bolt.fill", Category: dto.CategoryStreak, Requirement: 30, Points: 200}, longestStreak},
	{dto.Achievement{ID: "first_buddy", Title: "Study Buddy", Description: "Connect with your first buddy", Icon: "person.2", Category: dto.CategorySocial, Requirement: 1, Points: 10}, buddyCount},
	{dto.Achievement{ID: "buddies_10", Title: "Squad Goals", Description: "Connect with 10 buddies", Icon: "person.3", Category: dto.CategorySocial, Requirement: 10, Points: 50}, buddyCount},
	{dto.Achievement{ID: "likes_50", Title: "Cheerleader", Description: "Like 50 posts", Icon: "heart", Category: dto.CategorySocial, Requirement: 50, Points: 25}, likesGiven},
	{dto.Achievement{ID: "comments_25", Title: "Conversationalist", Description: "Leave 25 comments", Icon: "bubble.left", Category: dto.CategorySocial, Requirement: 25, Points: 25}, commentsMade},
}
