package models

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusCancelled ReferralStatus = "cancelled"
)

// ReferralEdge is a directed invite between two exchange accounts.
// Two partial unique indexes over non-deleted edges back the graph invariants:
// the invitee index keeps the in-degree at most 1 even under concurrent
// writers, and the pair index rejects a duplicate ordered pair outright. The
// out-degree cap is enforced in the service under a row lock on the inviter.
type ReferralEdge struct {
	ID               string           `gorm:"primaryKey" json:"id"`
	InviterAccountID string           `gorm:"type:uuid;index;uniqueIndex:idx_referral_edges_pair,priority:1,where:deleted_at IS NULL;not null" json:"inviter_account_id"`
	InviteeAccountID string           `gorm:"type:uuid;uniqueIndex:idx_referral_edges_invitee,where:deleted_at IS NULL;uniqueIndex:idx_referral_edges_pair,priority:2;not null" json:"invitee_account_id"`
	InviterAccount   *ExchangeAccount `gorm:"foreignKey:InviterAccountID" json:"inviter_account,omitempty"`
	InviteeAccount   *ExchangeAccount `gorm:"foreignKey:InviteeAccountID" json:"invitee_account,omitempty"`

	Status ReferralStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	Period string         `gorm:"type:varchar(16);index" json:"period,omitempty"` // e.g. "2026-08"

	CreatedBy string `gorm:"index;not null" json:"created_by"`

	Timestamps
}
