package models

import "time"

type Feedback struct {
	FeedbackID string    `json:"feedbackid" bson:"feedbackid"`
	Product    string    `json:"product" bson:"product"`
	User       string    `json:"user" bson:"user"`
	Rating     int       `json:"rating" bson:"rating"`
	Review     string    `json:"review,omitempty" bson:"review,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updatedAt"`
}

type Comment struct {
	CommentID string    `json:"commentid" bson:"commentid"`
	Product   string    `json:"product" bson:"product"`
	User      string    `json:"user" bson:"user"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// CatalogEvent is published on catalog or cart changes for downstream
// consumers (cache invalidation, live updates).
type CatalogEvent struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Method     string `json:"method"`
	UserID     string `json:"user_id,omitempty"`
}
