package models

import "time"

type ActivityAction string

const (
	ActionCreate ActivityAction = "create"
	ActionUpdate ActivityAction = "update"
	ActionDelete ActivityAction = "delete"
)

// SubjectType enumerates the kinds of records an activity row can point at.
type SubjectType string

const (
	SubjectProxy           SubjectType = "proxy"
	SubjectEmailAccount    SubjectType = "email_account"
	SubjectExchangeAccount SubjectType = "exchange_account"
	SubjectWallet          SubjectType = "wallet"
	SubjectReferralEdge    SubjectType = "referral_edge"
	SubjectRelationship    SubjectType = "account_relationship"
)

// Activity is an append-only audit row. Rows are never updated or deleted
// after creation; there is deliberately no soft-delete column here.
type Activity struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	ActorID     string         `gorm:"index;not null" json:"actor_id"`
	Action      ActivityAction `gorm:"type:varchar(16);not null" json:"action"`
	SubjectType SubjectType    `gorm:"type:varchar(32);index:idx_activities_subject,priority:1;not null" json:"subject_type"`
	SubjectID   string         `gorm:"index:idx_activities_subject,priority:2;not null" json:"subject_id"`
	Description string         `gorm:"type:text" json:"description"`
	Metadata    string         `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
