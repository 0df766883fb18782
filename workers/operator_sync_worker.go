package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"turtleboard/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// remoteOperator matches one profile entry from the identity service's
// change feed.
type remoteOperator struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type operatorChangesResponse struct {
	Users []remoteOperator `json:"users"`
}

// OperatorSyncWorker mirrors operator profiles from the identity service into
// the local users table, so records can be attributed without a remote lookup.
// The sync is incremental: each pass asks for changes since the newest local
// update.
type OperatorSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

func NewOperatorSyncWorker(db *gorm.DB, identityServiceURL, serviceToken string) *OperatorSyncWorker {
	return &OperatorSyncWorker{
		db:           db,
		interval:     time.Minute,
		baseURL:      identityServiceURL,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *OperatorSyncWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *OperatorSyncWorker) run(ctx context.Context) {
	// First pass backfills from the beginning.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("[operator-sync] initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.lastSyncTime()); err != nil {
				log.Printf("[operator-sync] sync failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("[operator-sync] stopped")
			return
		}
	}
}

// lastSyncTime is the newest updated_at among local operators, or the epoch
// when the table is empty.
func (w *OperatorSyncWorker) lastSyncTime() time.Time {
	var last time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM users WHERE deleted_at IS NULL").Scan(&last).Error
	if err != nil || last.IsZero() {
		return time.Unix(0, 0)
	}
	return last
}

func (w *OperatorSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid identity service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath("/api/v1/public/profiles")
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity service request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("identity service returned %d: %s", resp.StatusCode, string(body))
	}

	var response operatorChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode identity service response: %w", err)
	}
	if len(response.Users) == 0 {
		return nil
	}

	var upserted, failed int
	for _, remote := range response.Users {
		local := models.User{
			ID:             uuid.NewString(),
			ExternalUserID: remote.ID,
			Username:       remote.Username,
			Email:          remote.Email,
			FirstName:      remote.FirstName,
			LastName:       remote.LastName,
		}
		err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "email", "first_name", "last_name", "updated_at",
			}),
		}).Create(&local).Error
		if err != nil {
			failed++
			log.Printf("[operator-sync] failed to upsert operator %q (%s): %v", remote.Username, remote.ID, err)
			continue
		}
		upserted++
	}
	log.Printf("[operator-sync] synced %d operator(s), %d failed, since=%s",
		upserted, failed, since.UTC().Format(time.RFC3339))
	return nil
}
