package service

import (
	"fmt"

	"locki.app/backend/internal/entity"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventLike          EventKind = "like"
	EventComment       EventKind = "comment"
	EventBuddyRequest  EventKind = "buddy_request"
	EventBuddyAccepted EventKind = "buddy_accepted"
	EventMessage       EventKind = "message"
	EventAchievement   EventKind = "achievement"
)

const commentPreviewLength = 50

// Event is something that happened to Recipient, usually caused by Actor.
type Event struct {
	Kind      EventKind
	Recipient uuid.UUID
	Actor     *entity.User
	PostID    *uuid.UUID
	// Content is the comment or message text, or the achievement title.
	Content string
	// Detail is the achievement description.
	Detail string
	// ActionData points the client at the related object (conversation or achievement id).
	ActionData string
}

func LikeEvent(actor *entity.User, owner, postID uuid.UUID) Event {
	return Event{Kind: EventLike, Recipient: owner, Actor: actor, PostID: &postID}
}

func CommentEvent(actor *entity.User, owner, postID uuid.UUID, content string) Event {
	return Event{Kind: EventComment, Recipient: owner, Actor: actor, PostID: &postID, Content: content}
}

func BuddyRequestEvent(actor *entity.User, target uuid.UUID) Event {
	return Event{Kind: EventBuddyRequest, Recipient: target, Actor: actor}
}

func BuddyAcceptedEvent(actor *entity.User, requester uuid.UUID) Event {
	return Event{Kind: EventBuddyAccepted, Recipient: requester, Actor: actor}
}

func MessageEvent(actor *entity.User, receiver, conversationID uuid.UUID, content string) Event {
	return Event{Kind: EventMessage, Recipient: receiver, Actor: actor, Content: content, ActionData: conversationID.String()}
}

func AchievementEvent(recipient uuid.UUID, achievementID, title, description string) Event {
	return Event{Kind: EventAchievement, Recipient: recipient, Content: title, Detail: description, ActionData: achievementID}
}

// Build turns an event into the notification its recipient sees. Events a user causes on
// their own content produce nothing.
func Build(event Event) (*entity.Notification, bool) {
	if event.Actor != nil && event.Actor.ID == event.Recipient {
		return nil, false
	}

	n := &entity.Notification{
		UserID:        event.Recipient,
		RelatedPostID: event.PostID,
		ActionData:    event.ActionData,
	}
	actorName := ""
	if event.Actor != nil {
		actorID := event.Actor.ID
		n.RelatedUserID = &actorID
		n.RelatedUsername = event.Actor.Username
		actorName = event.Actor.Username
	}

	switch event.Kind {
	case EventLike:
		n.Type = entity.NotificationLike
		n.Title = "New Like"
		n.Message = fmt.Sprintf("%s liked your post", actorName)
	case EventComment:
		n.Type = entity.NotificationComment
		n.Title = "New Comment"
		n.Message = fmt.Sprintf("%s: %s", actorName, truncate(event.Content, commentPreviewLength))
	case EventBuddyRequest:
		n.Type = entity.NotificationFollow
		n.Title = "New Buddy Request"
		n.Message = fmt.Sprintf("%s wants to be your buddy", actorName)
	case EventBuddyAccepted:
		n.Type = entity.NotificationFollow
		n.Title = "Buddy Request Accepted"
		n.Message = fmt.Sprintf("%s accepted your buddy request", actorName)
	case EventMessage:
		n.Type = entity.NotificationMessage
		n.Title = "New Message"
		n.Message = fmt.Sprintf("%s: %s", actorName, event.Content)
	case EventAchievement:
		n.Type = entity.NotificationAchievement
		n.Title = "Achievement Unlocked!"
		n.Message = fmt.Sprintf("%s: %s", event.Content, event.Detail)
	default:
		return nil, false
	}

	return n, true
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
