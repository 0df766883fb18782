// services/proxy_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"turtleboard/models"
	"turtleboard/probe"
	"turtleboard/secrets"
	"turtleboard/vendorapi"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProxyStaleAfter is the fixed staleness window: a proxy validated longer ago
// than this is due for revalidation.
const ProxyStaleAfter = 24 * time.Hour

// ProxyService owns the proxy validation state machine (pending → valid |
// invalid, both re-enterable), the one-proxy-per-email-account assignment,
// and reconciliation against the vendor's inventory.
type ProxyService struct {
	DB       *gorm.DB
	Checker  probe.Checker
	Cipher   *secrets.Cipher
	Activity *ActivityService

	now func() time.Time
}

func NewProxyService(db *gorm.DB, checker probe.Checker, cipher *secrets.Cipher, activity *ActivityService) *ProxyService {
	return &ProxyService{
		DB:       db,
		Checker:  checker,
		Cipher:   cipher,
		Activity: activity,
		now:      time.Now,
	}
}

// MarkValid records a successful validation: status=valid, fresh validation
// stamp and response time. Geolocation fields are only overwritten when
// provided. Idempotent apart from the timestamp.
func (s *ProxyService) MarkValid(ctx context.Context, proxyID string, responseTimeMs int64, geolocation, countryCode string) error {
	return s.markValid(s.DB.WithContext(ctx), proxyID, responseTimeMs, geolocation, countryCode)
}

func (s *ProxyService) markValid(db *gorm.DB, proxyID string, responseTimeMs int64, geolocation, countryCode string) error {
	updates := map[string]any{
		"status":             models.ProxyStatusValid,
		"last_validation_at": s.now(),
		"response_time_ms":   responseTimeMs,
	}
	if geolocation != "" {
		updates["geolocation"] = geolocation
	}
	if countryCode != "" {
		updates["country_code"] = countryCode
	}
	return s.applyValidation(db, proxyID, updates)
}

// MarkInvalid records a failed validation. Historical metrics from the last
// successful check are kept for diagnostics.
func (s *ProxyService) MarkInvalid(ctx context.Context, proxyID string) error {
	return s.markInvalid(s.DB.WithContext(ctx), proxyID)
}

func (s *ProxyService) markInvalid(db *gorm.DB, proxyID string) error {
	return s.applyValidation(db, proxyID, map[string]any{
		"status":             models.ProxyStatusInvalid,
		"last_validation_at": s.now(),
	})
}

func (s *ProxyService) applyValidation(db *gorm.DB, proxyID string, updates map[string]any) error {
	res := db.Model(&models.Proxy{}).Where("id = ?", proxyID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Assign points an email account at a proxy. Fails with ErrAlreadyAssigned
// when another live email account holds the proxy; re-assigning the same
// account is an idempotent success. The partial unique index on
// email_accounts.proxy_id closes the concurrent-assign race.
func (s *ProxyService) Assign(ctx context.Context, proxyID, emailAccountID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var proxy models.Proxy
		if err := tx.First(&proxy, "id = ?", proxyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("proxy: %w", ErrNotFound)
			}
			return err
		}

		var account models.EmailAccount
		if err := tx.First(&account, "id = ?", emailAccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("email account: %w", ErrNotFound)
			}
			return err
		}

		var holder models.EmailAccount
		err := tx.First(&holder, "proxy_id = ?", proxyID).Error
		switch {
		case err == nil:
			if holder.ID == emailAccountID {
				return nil // already assigned here
			}
			return ErrAlreadyAssigned
		case errors.Is(err, gorm.ErrRecordNotFound):
			// free
		default:
			return err
		}

		if err := tx.Model(&account).Update("proxy_id", proxyID).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyAssigned
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Activity.Record("system", models.ActionUpdate, models.SubjectEmailAccount, emailAccountID,
		"proxy assigned", map[string]any{"proxy_id": proxyID})
	return nil
}

// isInUse reports whether any live email account references the proxy.
func (s *ProxyService) isInUse(db *gorm.DB, proxyID string) (bool, error) {
	var n int64
	err := db.Model(&models.EmailAccount{}).
		Where("proxy_id = ?", proxyID).
		Count(&n).Error
	return n > 0, err
}

// NeedsValidation returns proxies that are pending or whose last validation
// is older than the staleness window.
func (s *ProxyService) NeedsValidation(ctx context.Context) ([]models.Proxy, error) {
	cutoff := s.now().Add(-ProxyStaleAfter)
	var proxies []models.Proxy
	err := s.DB.WithContext(ctx).
		Where("status = ? OR last_validation_at IS NULL OR last_validation_at < ?",
			models.ProxyStatusPending, cutoff).
		Find(&proxies).Error
	return proxies, err
}

// BatchResult summarizes a ValidateBatch run.
type BatchResult struct {
	Validated int `json:"validated"`
	Failed    int `json:"failed"`
}

// ValidateBatch probes each target proxy and applies MarkValid/MarkInvalid.
// A nil id list means "everything due for validation". Probe failures are
// routine: they record invalid and never abort the batch. Cancelling the
// context stops between items; already-recorded outcomes stand.
func (s *ProxyService) ValidateBatch(ctx context.Context, proxyIDs []string) (BatchResult, error) {
	var result BatchResult

	var targets []models.Proxy
	if proxyIDs == nil {
		due, err := s.NeedsValidation(ctx)
		if err != nil {
			return result, err
		}
		targets = due
	} else {
		if err := s.DB.WithContext(ctx).Find(&targets, "id IN ?", proxyIDs).Error; err != nil {
			return result, err
		}
	}

	for _, p := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		addr := net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
		res, err := s.Checker.Check(ctx, addr)
		if err != nil {
			if markErr := s.markInvalid(s.DB.WithContext(ctx), p.ID); markErr != nil {
				log.Printf("[proxy] failed to record invalid result for %s: %v", p.ID, markErr)
			}
			result.Failed++
			continue
		}
		if err := s.markValid(s.DB.WithContext(ctx), p.ID, res.ResponseTimeMs, "", ""); err != nil {
			log.Printf("[proxy] failed to record valid result for %s: %v", p.ID, err)
			result.Failed++
			continue
		}
		result.Validated++
	}
	return result, nil
}

// SyncResult summarizes a SyncWithExternalInventory run.
type SyncResult struct {
	UpdatedMetadata int `json:"updated_metadata"`
	MarkedExpired   int `json:"marked_expired"`
	Missing         int `json:"missing"`
}

// SyncWithExternalInventory reconciles locally tracked vendor proxies against
// the remote set. A remote counterpart with zero days remaining expires the
// local proxy (unless already invalid); a differing expiry timestamp updates
// the cached metadata. Locals with no counterpart are counted as missing and
// left untouched.
func (s *ProxyService) SyncWithExternalInventory(ctx context.Context, remote []vendorapi.RemoteProxy) (SyncResult, error) {
	var result SyncResult

	byVendorID := make(map[string]vendorapi.RemoteProxy, len(remote))
	for _, r := range remote {
		byVendorID[r.ID] = r
	}

	var locals []models.Proxy
	if err := s.DB.WithContext(ctx).Where("vendor_id <> ''").Find(&locals).Error; err != nil {
		return result, err
	}

	for _, local := range locals {
		r, ok := byVendorID[local.VendorID]
		if !ok {
			log.Printf("[proxy] vendor proxy %s (%s:%d) has no remote counterpart", local.VendorID, local.IP, local.Port)
			result.Missing++
			continue
		}

		if r.DaysRemaining == 0 && local.Status != models.ProxyStatusInvalid {
			if err := s.markInvalid(s.DB.WithContext(ctx), local.ID); err != nil {
				log.Printf("[proxy] failed to expire %s: %v", local.ID, err)
				continue
			}
			result.MarkedExpired++
		}

		if r.ExpiryAt != nil && (local.VendorExpiryAt == nil || !local.VendorExpiryAt.Equal(*r.ExpiryAt)) {
			if err := s.DB.WithContext(ctx).Model(&models.Proxy{}).
				Where("id = ?", local.ID).
				Update("vendor_expiry_at", *r.ExpiryAt).Error; err != nil {
				log.Printf("[proxy] failed to update expiry for %s: %v", local.ID, err)
				continue
			}
			result.UpdatedMetadata++
		}
	}
	return result, nil
}

// CleanupResult summarizes a CleanupExpired run.
type CleanupResult struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// CleanupExpired soft-deletes vendor-sourced proxies that are invalid and past
// their cached expiry, skipping any still assigned to an email account.
// Human confirmation is the caller's concern; this function assumes it was
// given.
func (s *ProxyService) CleanupExpired(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult

	var expired []models.Proxy
	err := s.DB.WithContext(ctx).
		Where("vendor_id <> '' AND status = ? AND vendor_expiry_at < ?",
			models.ProxyStatusInvalid, s.now()).
		Find(&expired).Error
	if err != nil {
		return result, err
	}

	for _, p := range expired {
		inUse, err := s.isInUse(s.DB.WithContext(ctx), p.ID)
		if err != nil {
			return result, err
		}
		if inUse {
			result.Skipped++
			continue
		}
		if err := s.DB.WithContext(ctx).Delete(&p).Error; err != nil {
			log.Printf("[proxy] failed to delete expired proxy %s: %v", p.ID, err)
			result.Skipped++
			continue
		}
		s.Activity.Record("system", models.ActionDelete, models.SubjectProxy, p.ID,
			"expired vendor proxy removed", map[string]any{"vendor_id": p.VendorID})
		result.Deleted++
	}
	return result, nil
}

// ImportFailure records one remote proxy that could not be imported.
type ImportFailure struct {
	VendorID string `json:"vendor_id"`
	Error    string `json:"error"`
}

// ImportResult summarizes an ImportAvailable run.
type ImportResult struct {
	Imported int             `json:"imported"`
	Failures []ImportFailure `json:"failures,omitempty"`
}

// ImportAvailable creates local records for remote proxies that are active,
// not yet expired, not already imported, and not explicitly excluded.
// Individual creation failures are collected, not raised.
func (s *ProxyService) ImportAvailable(ctx context.Context, remote []vendorapi.RemoteProxy, excludeVendorIDs []string, ownerID string) (ImportResult, error) {
	var result ImportResult

	excluded := make(map[string]bool, len(excludeVendorIDs))
	for _, id := range excludeVendorIDs {
		excluded[id] = true
	}

	var existing []string
	if err := s.DB.WithContext(ctx).Model(&models.Proxy{}).
		Where("vendor_id <> ''").
		Pluck("vendor_id", &existing).Error; err != nil {
		return result, err
	}
	imported := make(map[string]bool, len(existing))
	for _, id := range existing {
		imported[id] = true
	}

	for _, r := range remote {
		if excluded[r.ID] || imported[r.ID] {
			continue
		}
		if !r.Active || r.DaysRemaining == 0 {
			continue
		}

		password := ""
		if r.Password != "" {
			enc, err := s.Cipher.Encrypt(r.Password)
			if err != nil {
				result.Failures = append(result.Failures, ImportFailure{VendorID: r.ID, Error: err.Error()})
				continue
			}
			password = enc
		}

		p := models.Proxy{
			ID:             uuid.NewString(),
			IP:             r.IP,
			Port:           r.Port,
			Username:       r.Username,
			Password:       password,
			Status:         models.ProxyStatusPending,
			CountryCode:    r.CountryCode,
			VendorID:       r.ID,
			VendorExpiryAt: r.ExpiryAt,
			UserID:         ownerID,
		}
		if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
			result.Failures = append(result.Failures, ImportFailure{VendorID: r.ID, Error: err.Error()})
			continue
		}
		s.Activity.Record(ownerID, models.ActionCreate, models.SubjectProxy, p.ID,
			"vendor proxy imported", map[string]any{"vendor_id": r.ID})
		result.Imported++
	}
	return result, nil
}
