// proxyctl drives the proxy vendor workflow from the command line:
// connection test, inventory refresh, sync and expired-proxy cleanup.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"turtleboard/probe"
	"turtleboard/secrets"
	"turtleboard/services"
	"turtleboard/vendorapi"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	debugFlag bool
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "proxyctl",
	Short: "Manage the external proxy vendor inventory",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debugFlag {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to the proxy vendor API",
	Run: func(cmd *cobra.Command, args []string) {
		client := newVendorClient()
		if err := client.TestConnection(context.Background()); err != nil {
			logger.Error("Vendor connection test failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Vendor connection OK")
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop the cached inventory and fetch a fresh copy from the vendor",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := newVendorClient()
		if err := client.InvalidateCache(ctx); err != nil {
			logger.Error("Failed to invalidate inventory cache", "error", err)
			os.Exit(1)
		}
		proxies, err := client.FetchIPv4(ctx)
		if err != nil {
			logger.Error("Inventory fetch failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Inventory refreshed", "proxies", len(proxies))
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local proxies against the vendor inventory",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		importAll, _ := cmd.Flags().GetBool("import-all")

		client := newVendorClient()
		remote, err := client.FetchIPv4(ctx)
		if err != nil {
			logger.Error("Inventory fetch failed", "error", err)
			os.Exit(1)
		}

		svc := newProxyService()
		result, err := svc.SyncWithExternalInventory(ctx, remote)
		if err != nil {
			logger.Error("Sync failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Sync complete",
			"updatedMetadata", result.UpdatedMetadata,
			"markedExpired", result.MarkedExpired,
			"missing", result.Missing)

		if importAll {
			imported, err := svc.ImportAvailable(ctx, remote, nil, viper.GetString("import.owner_id"))
			if err != nil {
				logger.Error("Import failed", "error", err)
				os.Exit(1)
			}
			logger.Info("Import complete", "imported", imported.Imported, "failures", len(imported.Failures))
			for _, f := range imported.Failures {
				logger.Warn("Import failure", "vendorID", f.VendorID, "error", f.Error)
			}
		}
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Soft-delete expired invalid vendor proxies that are not in use",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		if !force && !confirm("Delete expired invalid vendor proxies?") {
			logger.Info("Cleanup aborted")
			return
		}

		svc := newProxyService()
		result, err := svc.CleanupExpired(context.Background())
		if err != nil {
			logger.Error("Cleanup failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Cleanup complete", "deleted", result.Deleted, "skipped", result.Skipped)
	},
}

func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func newVendorClient() *vendorapi.Client {
	var cache *redis.Client
	if addr := viper.GetString("redis.addr"); addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
		})
	}
	return vendorapi.NewClient(
		viper.GetString("vendor.base_url"),
		viper.GetString("vendor.api_key"),
		cache,
	)
}

func newProxyService() *services.ProxyService {
	db, err := gorm.Open(postgres.Open(viper.GetString("database.dsn")), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}

	cipher, err := secrets.NewCipherFromEnv()
	if err != nil {
		logger.Error("Error initializing secret cipher", "error", err)
		os.Exit(1)
	}

	activity := services.NewActivityService(db)
	checker := probe.NewTCPChecker(probe.DefaultTimeout)
	return services.NewProxyService(db, checker, cipher, activity)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")
	syncCmd.Flags().Bool("import-all", false, "Import every available vendor proxy after syncing")
	cleanupCmd.Flags().Bool("force", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func initConfig() {
	viper.SetConfigName("proxyctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.turtleboard")
	viper.AddConfigPath("/etc/turtleboard/")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// No config file is fine; the environment can supply every key.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
