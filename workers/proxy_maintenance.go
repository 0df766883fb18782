package workers

import (
	"context"
	"log"
	"time"

	"turtleboard/services"
	"turtleboard/vendorapi"

	"github.com/go-co-op/gocron/v2"
)

// StartProxyMaintenance runs the periodic proxy upkeep: revalidation of stale
// proxies on a fixed schedule, and — when a vendor client is configured — a
// daily inventory sync. The scheduler stops when ctx is cancelled.
func StartProxyMaintenance(ctx context.Context, proxyService *services.ProxyService, vendorClient *vendorapi.Client, revalidateEvery time.Duration) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[maintenance] failed to create scheduler: %v", err)
		return
	}
	sched.Start()

	_, err = sched.NewJob(
		gocron.DurationJob(revalidateEvery),
		gocron.NewTask(func() {
			result, err := proxyService.ValidateBatch(ctx, nil)
			if err != nil {
				log.Printf("[maintenance] revalidation aborted: %v", err)
				return
			}
			if result.Validated+result.Failed > 0 {
				log.Printf("[maintenance] revalidated proxies: %d valid, %d invalid", result.Validated, result.Failed)
			}
		}),
	)
	if err != nil {
		log.Printf("[maintenance] failed to schedule revalidation job: %v", err)
	}

	if vendorClient != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(24*time.Hour),
			gocron.NewTask(func() {
				remote, err := vendorClient.FetchIPv4(ctx)
				if err != nil {
					log.Printf("[maintenance] vendor inventory fetch failed: %v", err)
					return
				}
				result, err := proxyService.SyncWithExternalInventory(ctx, remote)
				if err != nil {
					log.Printf("[maintenance] vendor sync failed: %v", err)
					return
				}
				log.Printf("[maintenance] vendor sync: %d metadata updates, %d expired, %d missing",
					result.UpdatedMetadata, result.MarkedExpired, result.Missing)
			}),
		)
		if err != nil {
			log.Printf("[maintenance] failed to schedule vendor sync job: %v", err)
		}
	}

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("[maintenance] scheduler shutdown error: %v", err)
		}
	}()
}
