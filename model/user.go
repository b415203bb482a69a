package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserTableName = "users"

const (
	UserStatusOnline  = "online"
	UserStatusOffline = "offline"
)

// User carries the account fields the gateway needs. Credentials live in
// the auth service's own collection and never pass through here.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FirstName string             `bson:"first_name" json:"firstName"`
	LastName  string             `bson:"last_name" json:"lastName"`
	Email     string             `bson:"email" json:"email"`
	Avatar    string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Status    string             `bson:"status" json:"status"`
	LastSeen  time.Time          `bson:"last_seen" json:"lastSeen"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

func (*User) TableName() string { return UserTableName }

// Snapshot is the trimmed shape embedded into presence and typing frames.
type UserSnapshot struct {
	ID        string `bson:"_id" json:"_id"`
	FirstName string `bson:"first_name" json:"firstName"`
	LastName  string `bson:"last_name" json:"lastName"`
	Avatar    string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:        u.ID.Hex(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    u.Avatar,
	}
}
