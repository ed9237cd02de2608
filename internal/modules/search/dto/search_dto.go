package dto

import (
	postDto "locki.app/backend/internal/modules/post/dto"
	commonDto "locki.app/backend/pkg/dto"
)

const (
	TypeUsers = "users"
	TypePosts = "posts"
	TypeAll   = "all"
)

type SearchRequest struct {
	Query string `form:"q" binding:"required,max=100"`
	Type  string `form:"type" binding:"omitempty,oneof=users posts all"`
	Limit int    `form:"limit"`
}

type UserResult struct {
	commonDto.AuthorResponse
	Bio        string `json:"bio"`
	Profession string `json:"profession"`
	Relevance  int    `json:"relevance"`
}

type PostResult struct {
	postDto.PostResponse
	Relevance int `json:"relevance"`
}

type SearchResponse struct {
	Users []UserResult `json:"users,omitempty"`
	Posts []PostResult `json:"posts,omitempty"`
}

type HistoryEntry struct {
	Query string `json:"query"`
	Type  string `json:"type"`
}
