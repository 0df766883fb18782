// handlers/account_routes.go
package handlers

import (
	"turtleboard/middleware"
	"turtleboard/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAccountRoutes wires the CRUD surface for the provisioning chain:
// email accounts, exchange accounts, wallets and chain snapshots.
func SetupAccountRoutes(
	app *fiber.App,
	emailService *services.EmailAccountService,
	exchangeService *services.ExchangeAccountService,
	walletService *services.WalletService,
	relationshipService *services.RelationshipService,
) {
	emails := app.Group("/email-accounts", middleware.UserContextMiddleware())
	emails.Get("/", emailService.ListEmailAccounts)
	emails.Post("/", emailService.CreateEmailAccount)
	emails.Put("/:id", emailService.UpdateEmailAccount)
	emails.Delete("/:id", emailService.DeleteEmailAccount)
	emails.Post("/:id/assign-proxy", emailService.AssignProxy)

	exchanges := app.Group("/exchange-accounts", middleware.UserContextMiddleware())
	exchanges.Get("/", exchangeService.ListExchangeAccounts)
	exchanges.Post("/", exchangeService.CreateExchangeAccount)
	exchanges.Put("/:id", exchangeService.UpdateExchangeAccount)
	exchanges.Delete("/:id", exchangeService.DeleteExchangeAccount)

	wallets := app.Group("/wallets", middleware.UserContextMiddleware())
	wallets.Get("/", walletService.ListWallets)
	wallets.Post("/", walletService.CreateWallet)
	wallets.Delete("/:id", walletService.DeleteWallet)

	relationships := app.Group("/relationships", middleware.UserContextMiddleware())
	relationships.Get("/", relationshipService.ListRelationships)
	relationships.Post("/", relationshipService.CreateRelationship)
	relationships.Delete("/:id", relationshipService.DeleteRelationship)
}
