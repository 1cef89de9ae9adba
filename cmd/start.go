package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"upgrade-tracker/core/logger"
	"upgrade-tracker/core/middleware/auth"
	"upgrade-tracker/core/middleware/rayid"
	"upgrade-tracker/feature/catalog"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the upgrade tracker server",
	Long:  `Starts the HTTP server and wires the scraping pipeline behind it.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		svc, cfg, logg, err := buildService(ctx)
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// Middleware Registration
		// RayID must be first to trace everything.
		app.Use(rayid.New())

		// Logging middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Mutating routes require the API key when one is configured.
		// Reads stay public.
		app.Use("/catalog/refresh", auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		handler := catalog.NewHandler(svc)
		handler.RegisterRoutes(app)

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
