package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"turtleboard/models"
)

func newTestReferralService(t *testing.T) *ReferralService {
	t.Helper()
	db := newTestDB(t)
	return NewReferralService(db, NewActivityService(db))
}

func TestCreateEdgeSelfReferral(t *testing.T) {
	svc := newTestReferralService(t)
	account := createExchangeAccount(t, svc.DB, "self@example.com", models.AccountStatusActive)

	_, err := svc.CreateEdge(context.Background(), account.ID, account.ID, "operator-1", "")
	if !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}

	// Also rejected when the account does not exist at all.
	_, err = svc.CreateEdge(context.Background(), "missing", "missing", "operator-1", "")
	if !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral for unknown account, got %v", err)
	}
}

func TestCreateEdgeEndpointChecks(t *testing.T) {
	svc := newTestReferralService(t)
	active := createExchangeAccount(t, svc.DB, "active@example.com", models.AccountStatusActive)
	inactive := createExchangeAccount(t, svc.DB, "inactive@example.com", models.AccountStatusInactive)
	suspended := createExchangeAccount(t, svc.DB, "suspended@example.com", models.AccountStatusSuspended)

	if _, err := svc.CreateEdge(context.Background(), "missing", active.ID, "operator-1", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing inviter: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.CreateEdge(context.Background(), active.ID, "missing", "operator-1", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing invitee: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.CreateEdge(context.Background(), inactive.ID, active.ID, "operator-1", ""); !errors.Is(err, ErrInactiveAccount) {
		t.Errorf("inactive inviter: expected ErrInactiveAccount, got %v", err)
	}
	if _, err := svc.CreateEdge(context.Background(), active.ID, suspended.ID, "operator-1", ""); !errors.Is(err, ErrInactiveAccount) {
		t.Errorf("suspended invitee: expected ErrInactiveAccount, got %v", err)
	}
}

func TestCreateEdgeCapacity(t *testing.T) {
	svc := newTestReferralService(t)
	inviter := createExchangeAccount(t, svc.DB, "inviter@example.com", models.AccountStatusActive)

	for i := 0; i < MaxInvitesPerAccount; i++ {
		invitee := createExchangeAccount(t, svc.DB, fmt.Sprintf("invitee%d@example.com", i), models.AccountStatusActive)
		if _, err := svc.CreateEdge(context.Background(), inviter.ID, invitee.ID, "operator-1", ""); err != nil {
			t.Fatalf("edge %d: unexpected error %v", i, err)
		}
	}

	remaining, err := svc.RemainingSlots(context.Background(), inviter.ID)
	if err != nil {
		t.Fatalf("RemainingSlots: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 remaining slots, got %d", remaining)
	}
	canInvite, err := svc.CanInviteMore(context.Background(), inviter.ID)
	if err != nil {
		t.Fatalf("CanInviteMore: %v", err)
	}
	if canInvite {
		t.Fatal("expected CanInviteMore to be false at capacity")
	}

	extra := createExchangeAccount(t, svc.DB, "extra@example.com", models.AccountStatusActive)
	if _, err := svc.CreateEdge(context.Background(), inviter.ID, extra.ID, "operator-1", ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded on sixth edge, got %v", err)
	}
}

func TestCancelledEdgeStillConsumesSlot(t *testing.T) {
	svc := newTestReferralService(t)
	inviter := createExchangeAccount(t, svc.DB, "inviter@example.com", models.AccountStatusActive)

	var firstEdgeID string
	for i := 0; i < MaxInvitesPerAccount; i++ {
		invitee := createExchangeAccount(t, svc.DB, fmt.Sprintf("invitee%d@example.com", i), models.AccountStatusActive)
		edge, err := svc.CreateEdge(context.Background(), inviter.ID, invitee.ID, "operator-1", "")
		if err != nil {
			t.Fatalf("edge %d: unexpected error %v", i, err)
		}
		if i == 0 {
			firstEdgeID = edge.ID
		}
	}

	if _, err := svc.UpdateStatus(context.Background(), firstEdgeID, models.ReferralStatusCancelled); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	extra := createExchangeAccount(t, svc.DB, "extra@example.com", models.AccountStatusActive)
	if _, err := svc.CreateEdge(context.Background(), inviter.ID, extra.ID, "operator-1", ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("cancelled edge should still consume a slot, got %v", err)
	}
}

func TestCreateEdgeAlreadyInvited(t *testing.T) {
	svc := newTestReferralService(t)
	a := createExchangeAccount(t, svc.DB, "a@example.com", models.AccountStatusActive)
	b := createExchangeAccount(t, svc.DB, "b@example.com", models.AccountStatusActive)
	c := createExchangeAccount(t, svc.DB, "c@example.com", models.AccountStatusActive)

	if _, err := svc.CreateEdge(context.Background(), a.ID, b.ID, "operator-1", ""); err != nil {
		t.Fatalf("first edge: %v", err)
	}
	if _, err := svc.CreateEdge(context.Background(), c.ID, b.ID, "operator-1", ""); !errors.Is(err, ErrAlreadyInvited) {
		t.Fatalf("expected ErrAlreadyInvited, got %v", err)
	}
	if _, err := svc.CreateEdge(context.Background(), a.ID, b.ID, "operator-1", ""); !errors.Is(err, ErrAlreadyInvited) {
		t.Fatalf("repeat of same pair reports ErrAlreadyInvited first, got %v", err)
	}

	invited, err := svc.IsAlreadyInvited(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("IsAlreadyInvited: %v", err)
	}
	if !invited {
		t.Fatal("expected b to be already invited")
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.ReferralStatus
		to      models.ReferralStatus
		wantErr error
	}{
		{"pending to completed", models.ReferralStatusPending, models.ReferralStatusCompleted, nil},
		{"pending to cancelled", models.ReferralStatusPending, models.ReferralStatusCancelled, nil},
		{"pending to pending", models.ReferralStatusPending, models.ReferralStatusPending, ErrInvalidTransition},
		{"completed to pending", models.ReferralStatusCompleted, models.ReferralStatusPending, ErrInvalidTransition},
		{"completed to cancelled", models.ReferralStatusCompleted, models.ReferralStatusCancelled, ErrInvalidTransition},
		{"cancelled to completed", models.ReferralStatusCancelled, models.ReferralStatusCompleted, ErrInvalidTransition},
		{"cancelled to pending", models.ReferralStatusCancelled, models.ReferralStatusPending, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestReferralService(t)
			inviter := createExchangeAccount(t, svc.DB, "inviter@example.com", models.AccountStatusActive)
			invitee := createExchangeAccount(t, svc.DB, "invitee@example.com", models.AccountStatusActive)

			edge, err := svc.CreateEdge(context.Background(), inviter.ID, invitee.ID, "operator-1", "")
			if err != nil {
				t.Fatalf("CreateEdge: %v", err)
			}
			if tt.from != models.ReferralStatusPending {
				if err := svc.DB.Model(&models.ReferralEdge{}).Where("id = ?", edge.ID).
					Update("status", tt.from).Error; err != nil {
					t.Fatalf("failed to force status %s: %v", tt.from, err)
				}
			}

			updated, err := svc.UpdateStatus(context.Background(), edge.ID, tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated.Status != tt.to {
				t.Fatalf("expected status %s, got %s", tt.to, updated.Status)
			}
		})
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newTestReferralService(t)
	if _, err := svc.UpdateStatus(context.Background(), "missing", models.ReferralStatusCompleted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEdgeFreesCapacity(t *testing.T) {
	svc := newTestReferralService(t)
	inviter := createExchangeAccount(t, svc.DB, "inviter@example.com", models.AccountStatusActive)

	edges := make([]string, 0, MaxInvitesPerAccount)
	invitees := make([]string, 0, MaxInvitesPerAccount)
	for i := 0; i < MaxInvitesPerAccount; i++ {
		invitee := createExchangeAccount(t, svc.DB, fmt.Sprintf("invitee%d@example.com", i), models.AccountStatusActive)
		edge, err := svc.CreateEdge(context.Background(), inviter.ID, invitee.ID, "operator-1", "")
		if err != nil {
			t.Fatalf("edge %d: %v", i, err)
		}
		edges = append(edges, edge.ID)
		invitees = append(invitees, invitee.ID)
	}

	if err := svc.DeleteEdge(context.Background(), edges[0], "operator-1"); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}

	remaining, err := svc.RemainingSlots(context.Background(), inviter.ID)
	if err != nil {
		t.Fatalf("RemainingSlots: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 remaining slot after delete, got %d", remaining)
	}

	// The freed invitee can be invited again, by anyone.
	other := createExchangeAccount(t, svc.DB, "other@example.com", models.AccountStatusActive)
	if _, err := svc.CreateEdge(context.Background(), other.ID, invitees[0], "operator-1", ""); err != nil {
		t.Fatalf("re-inviting freed invitee: %v", err)
	}
}

func TestExportGraph(t *testing.T) {
	svc := newTestReferralService(t)
	root := createExchangeAccount(t, svc.DB, "root@example.com", models.AccountStatusActive)
	b := createExchangeAccount(t, svc.DB, "b@example.com", models.AccountStatusActive)
	c := createExchangeAccount(t, svc.DB, "c@example.com", models.AccountStatusActive)
	// Untouched account, must not appear.
	createExchangeAccount(t, svc.DB, "loner@example.com", models.AccountStatusActive)

	if _, err := svc.CreateEdge(context.Background(), root.ID, b.ID, "operator-1", "2026-08"); err != nil {
		t.Fatalf("edge root→b: %v", err)
	}
	if _, err := svc.CreateEdge(context.Background(), root.ID, c.ID, "operator-1", "2026-07"); err != nil {
		t.Fatalf("edge root→c: %v", err)
	}

	data, err := svc.ExportGraph(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportGraph: %v", err)
	}
	if len(data.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(data.Nodes))
	}
	if len(data.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(data.Edges))
	}

	groups := make(map[string]string)
	labels := make(map[string]string)
	for _, n := range data.Nodes {
		groups[n.ID] = n.Group
		labels[n.ID] = n.Label
	}
	if groups[root.ID] != "root" {
		t.Errorf("expected root group for inviter, got %q", groups[root.ID])
	}
	if groups[b.ID] != "invitee" || groups[c.ID] != "invitee" {
		t.Errorf("expected invitee group for targets, got %q and %q", groups[b.ID], groups[c.ID])
	}
	if labels[root.ID] != "root@example.com" {
		t.Errorf("expected email label, got %q", labels[root.ID])
	}

	// Period filter restricts edges and the touched node set.
	filtered, err := svc.ExportGraph(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("ExportGraph with period: %v", err)
	}
	if len(filtered.Edges) != 1 {
		t.Fatalf("expected 1 edge for period, got %d", len(filtered.Edges))
	}
	if len(filtered.Nodes) != 2 {
		t.Fatalf("expected 2 nodes for period, got %d", len(filtered.Nodes))
	}
}

func TestExportGraphKeepsDeletedAccountNodes(t *testing.T) {
	svc := newTestReferralService(t)
	inviter := createExchangeAccount(t, svc.DB, "inviter@example.com", models.AccountStatusActive)
	invitee := createExchangeAccount(t, svc.DB, "invitee@example.com", models.AccountStatusActive)

	if _, err := svc.CreateEdge(context.Background(), inviter.ID, invitee.ID, "operator-1", ""); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if err := svc.DB.Delete(&models.ExchangeAccount{ID: invitee.ID}).Error; err != nil {
		t.Fatalf("failed to delete invitee account: %v", err)
	}

	data, err := svc.ExportGraph(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportGraph: %v", err)
	}
	if len(data.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(data.Edges))
	}

	// Every edge endpoint must have a node, deleted account or not.
	nodes := make(map[string]bool, len(data.Nodes))
	for _, n := range data.Nodes {
		nodes[n.ID] = true
	}
	for _, e := range data.Edges {
		if !nodes[e.From] || !nodes[e.To] {
			t.Fatalf("edge %s has a dangling endpoint (from=%v to=%v)", e.ID, nodes[e.From], nodes[e.To])
		}
	}
}

func TestCreateEdgeRecordsActivity(t *testing.T) {
	svc := newTestReferralService(t)
	inviter := createExchangeAccount(t, svc.DB, "inviter@example.com", models.AccountStatusActive)
	invitee := createExchangeAccount(t, svc.DB, "invitee@example.com", models.AccountStatusActive)

	edge, err := svc.CreateEdge(context.Background(), inviter.ID, invitee.ID, "operator-7", "")
	if err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}

	var activity models.Activity
	err = svc.DB.Where("subject_type = ? AND subject_id = ?", models.SubjectReferralEdge, edge.ID).
		First(&activity).Error
	if err != nil {
		t.Fatalf("expected activity row, got %v", err)
	}
	if activity.ActorID != "operator-7" || activity.Action != models.ActionCreate {
		t.Fatalf("unexpected activity row: %+v", activity)
	}
}
