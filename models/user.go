package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the platform account referenced by participants. Profile
// management lives in the main platform service; this api only reads
// what auth and digest emails need.
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details UserDetails        `json:"user" bson:"user"`
}

// UserDetails contains the inner details of a user
type UserDetails struct {
	Username  string    `json:"username" bson:"username"`
	Nickname  string    `json:"nickname,omitempty" bson:"nickname,omitempty"`
	Email     string    `json:"email" bson:"email"`
	Password  string    `json:"password,omitempty" bson:"password,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
