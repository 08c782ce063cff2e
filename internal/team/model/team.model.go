package model

import "time"

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Member struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	InvitedBy *string   `json:"invited_by,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TeamDetail is a team with its member list.
type TeamDetail struct {
	Team
	Members []Member `json:"members"`
}
