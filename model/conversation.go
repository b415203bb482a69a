package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ConversationTableName = "conversations"

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// GroupSettings are the group-wide toggles relayed on group:settings_updated.
type GroupSettings struct {
	OnlyAdminsCanSend       bool `bson:"only_admins_can_send" json:"onlyAdminsCanSend"`
	OnlyAdminsCanEditInfo   bool `bson:"only_admins_can_edit_info" json:"onlyAdminsCanEditInfo"`
	OnlyAdminsCanAddMembers bool `bson:"only_admins_can_add_members" json:"onlyAdminsCanAddMembers"`
	MembersCanLeave         bool `bson:"members_can_leave" json:"membersCanLeave"`
	MaxMembers              int  `bson:"max_members" json:"maxMembers"`
}

type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	IsGroup      bool                 `bson:"is_group" json:"isGroup"`
	GroupName    string               `bson:"group_name,omitempty" json:"groupName,omitempty"`
	GroupAvatar  string               `bson:"group_avatar,omitempty" json:"groupAvatar,omitempty"`
	// member role map keyed by user ID hex
	MemberRoles   map[string]string    `bson:"member_roles,omitempty" json:"memberRoles,omitempty"`
	GroupSettings *GroupSettings       `bson:"group_settings,omitempty" json:"groupSettings,omitempty"`
	Admins        []primitive.ObjectID `bson:"admins,omitempty" json:"admins,omitempty"`
	Creator       primitive.ObjectID   `bson:"creator" json:"creator"`
	LastMessageAt time.Time            `bson:"last_message_at" json:"lastMessageAt"`
	ArchivedBy    []primitive.ObjectID `bson:"archived_by,omitempty" json:"archivedBy,omitempty"`
	CreatedAt     time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updatedAt"`
}

func (*Conversation) TableName() string { return ConversationTableName }

// IsParticipant reports durable membership. Live room subscription is a
// separate, per-connection concern owned by the gateway.
func (c *Conversation) IsParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.Hex() == userID {
			return true
		}
	}
	return false
}

func (c *Conversation) RoleOf(userID string) string {
	if r, ok := c.MemberRoles[userID]; ok {
		return r
	}
	for _, a := range c.Admins {
		if a.Hex() == userID {
			return RoleAdmin
		}
	}
	return RoleMember
}
