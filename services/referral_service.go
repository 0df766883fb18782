// services/referral_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"turtleboard/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxInvitesPerAccount caps the out-degree of any exchange account in the
// referral graph.
const MaxInvitesPerAccount = 5

// ReferralService maintains the directed referral edge set between exchange
// accounts: capacity/eligibility queries, edge creation under the graph
// invariants, status transitions, and the network export for the dashboard's
// force-directed view.
//
// Degree checks count non-deleted edges of any status: a cancelled edge still
// consumes a slot, a (soft-)deleted edge does not.
type ReferralService struct {
	DB       *gorm.DB
	Activity *ActivityService
}

func NewReferralService(db *gorm.DB, activity *ActivityService) *ReferralService {
	return &ReferralService{DB: db, Activity: activity}
}

func outDegree(tx *gorm.DB, accountID string) (int64, error) {
	var n int64
	err := tx.Model(&models.ReferralEdge{}).
		Where("inviter_account_id = ?", accountID).
		Count(&n).Error
	return n, err
}

func inDegree(tx *gorm.DB, accountID string) (int64, error) {
	var n int64
	err := tx.Model(&models.ReferralEdge{}).
		Where("invitee_account_id = ?", accountID).
		Count(&n).Error
	return n, err
}

// CanInviteMore reports whether the account still has a free referral slot.
func (s *ReferralService) CanInviteMore(ctx context.Context, accountID string) (bool, error) {
	n, err := outDegree(s.DB.WithContext(ctx), accountID)
	if err != nil {
		return false, err
	}
	return n < MaxInvitesPerAccount, nil
}

// RemainingSlots returns how many more accounts this one may invite, clamped
// to zero.
func (s *ReferralService) RemainingSlots(ctx context.Context, accountID string) (int, error) {
	n, err := outDegree(s.DB.WithContext(ctx), accountID)
	if err != nil {
		return 0, err
	}
	remaining := MaxInvitesPerAccount - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// IsAlreadyInvited reports whether the account is already the target of an
// edge.
func (s *ReferralService) IsAlreadyInvited(ctx context.Context, accountID string) (bool, error) {
	n, err := inDegree(s.DB.WithContext(ctx), accountID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateEdge validates and inserts a pending referral edge. Checks run in a
// fixed order so the first failing one determines the reported error:
// self-referral, inviter active, invitee active, inviter capacity, invitee
// not already invited, no duplicate pair.
//
// The whole check-then-insert runs in one transaction with the inviter row
// locked, so two concurrent calls cannot both observe out-degree 4 and
// succeed. The partial unique index on the invitee backstops the in-degree
// invariant; a unique violation from a racing writer surfaces as ErrConflict.
func (s *ReferralService) CreateEdge(ctx context.Context, inviterID, inviteeID, createdBy, period string) (*models.ReferralEdge, error) {
	if inviterID == inviteeID {
		return nil, ErrSelfReferral
	}

	var edge *models.ReferralEdge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inviter, err := lockAccount(tx, inviterID)
		if err != nil {
			return fmt.Errorf("inviter: %w", err)
		}
		if inviter.Status != models.AccountStatusActive {
			return fmt.Errorf("inviter: %w", ErrInactiveAccount)
		}

		var invitee models.ExchangeAccount
		if err := tx.First(&invitee, "id = ?", inviteeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invitee: %w", ErrNotFound)
			}
			return err
		}
		if invitee.Status != models.AccountStatusActive {
			return fmt.Errorf("invitee: %w", ErrInactiveAccount)
		}

		out, err := outDegree(tx, inviterID)
		if err != nil {
			return err
		}
		if out >= MaxInvitesPerAccount {
			return ErrCapacityExceeded
		}

		in, err := inDegree(tx, inviteeID)
		if err != nil {
			return err
		}
		if in > 0 {
			return ErrAlreadyInvited
		}

		var dup int64
		if err := tx.Model(&models.ReferralEdge{}).
			Where("inviter_account_id = ? AND invitee_account_id = ?", inviterID, inviteeID).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateEdge
		}

		edge = &models.ReferralEdge{
			ID:               uuid.NewString(),
			InviterAccountID: inviterID,
			InviteeAccountID: inviteeID,
			Status:           models.ReferralStatusPending,
			Period:           period,
			CreatedBy:        createdBy,
		}
		if err := tx.Create(edge).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Activity.Record(createdBy, models.ActionCreate, models.SubjectReferralEdge, edge.ID,
		"referral edge created", map[string]any{
			"inviter_account_id": inviterID,
			"invitee_account_id": inviteeID,
		})
	return edge, nil
}

// lockAccount fetches an exchange account with a row lock where the dialect
// supports one. sqlite has no FOR UPDATE; its single-writer lock already
// covers the check-then-insert window.
func lockAccount(tx *gorm.DB, id string) (*models.ExchangeAccount, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account models.ExchangeAccount
	if err := q.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateStatus applies a status transition. Only pending→completed and
// pending→cancelled are legal; completed and cancelled are terminal.
func (s *ReferralService) UpdateStatus(ctx context.Context, edgeID string, newStatus models.ReferralStatus) (*models.ReferralEdge, error) {
	if newStatus != models.ReferralStatusCompleted && newStatus != models.ReferralStatusCancelled {
		return nil, ErrInvalidTransition
	}

	var edge models.ReferralEdge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&edge, "id = ?", edgeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if edge.Status != models.ReferralStatusPending {
			return ErrInvalidTransition
		}
		edge.Status = newStatus
		return tx.Save(&edge).Error
	})
	if err != nil {
		return nil, err
	}

	s.Activity.Record(edge.CreatedBy, models.ActionUpdate, models.SubjectReferralEdge, edge.ID,
		"referral edge status changed", map[string]any{"status": string(newStatus)})
	return &edge, nil
}

// DeleteEdge soft-deletes an edge. Deleted edges no longer count toward any
// degree or uniqueness check, so deleting frees the inviter's slot and lets
// the invitee be invited again.
func (s *ReferralService) DeleteEdge(ctx context.Context, edgeID, actorID string) error {
	var edge models.ReferralEdge
	if err := s.DB.WithContext(ctx).First(&edge, "id = ?", edgeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&edge).Error; err != nil {
		return err
	}
	s.Activity.Record(actorID, models.ActionDelete, models.SubjectReferralEdge, edge.ID,
		"referral edge deleted", nil)
	return nil
}

// GraphNode and GraphEdge match what the force-directed renderer consumes.
// Node and edge ordering is not part of the contract.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"` // "root" or "invitee"
}

type GraphEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Color string `json:"color"`
	Title string `json:"title"`
}

type NetworkData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

var edgeColors = map[models.ReferralStatus]string{
	models.ReferralStatusPending:   "#f0ad4e",
	models.ReferralStatusCompleted: "#5cb85c",
	models.ReferralStatusCancelled: "#d9534f",
}

// ExportGraph builds the network view over every account touched by at least
// one edge, optionally restricted to edges of one period. A node is tagged
// "root" when it only ever invites; any account that was itself invited is an
// "invitee".
func (s *ReferralService) ExportGraph(ctx context.Context, period string) (*NetworkData, error) {
	db := s.DB.WithContext(ctx)

	query := db.Model(&models.ReferralEdge{})
	if period != "" {
		query = query.Where("period = ?", period)
	}
	var edges []models.ReferralEdge
	if err := query.Find(&edges).Error; err != nil {
		return nil, err
	}

	invited := make(map[string]bool)
	touched := make(map[string]bool)
	for _, e := range edges {
		touched[e.InviterAccountID] = true
		touched[e.InviteeAccountID] = true
		invited[e.InviteeAccountID] = true
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}

	// Unscoped: an edge may outlive its endpoint accounts, and a dangling
	// edge breaks the force-directed renderer. Deleted accounts still get a
	// node.
	var accounts []models.ExchangeAccount
	if len(ids) > 0 {
		if err := db.Unscoped().Preload("EmailAccount").Find(&accounts, "id IN ?", ids).Error; err != nil {
			return nil, err
		}
	}

	data := &NetworkData{
		Nodes: make([]GraphNode, 0, len(accounts)),
		Edges: make([]GraphEdge, 0, len(edges)),
	}
	for _, a := range accounts {
		label := a.ID
		if a.EmailAccount != nil {
			label = a.EmailAccount.Email
		}
		group := "root"
		if invited[a.ID] {
			group = "invitee"
		}
		data.Nodes = append(data.Nodes, GraphNode{ID: a.ID, Label: label, Group: group})
	}
	for _, e := range edges {
		data.Edges = append(data.Edges, GraphEdge{
			ID:    e.ID,
			From:  e.InviterAccountID,
			To:    e.InviteeAccountID,
			Color: edgeColors[e.Status],
			Title: string(e.Status),
		})
	}
	return data, nil
}
