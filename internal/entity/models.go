package entity

// Models lists every persisted entity in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UserSettings{},
		&UserStats{},
		&UserStatBucket{},
		&Post{},
		&PostLike{},
		&PostComment{},
		&BuddyRelationship{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&Notification{},
		&UserAchievement{},
		&SearchHistory{},
	}
}
