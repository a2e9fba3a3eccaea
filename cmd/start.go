package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"graph-store/core/loader"
	"graph-store/core/logger"
	"graph-store/core/middleware/auth"
	"graph-store/core/middleware/rayid"
	"graph-store/feature/export"
	"graph-store/feature/importer"
	"graph-store/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "graph-store/docs/swagger"
)

// @title Graph Store API
// @version 1.0
// @description Import, export and integrity API over the object graph store.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		logg := env.logger
		zap.ReplaceGlobals(logg)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             env.cfg.Server.BodyLimit(),
		})

		mgr := loader.NewManager(logg)
		importSvc := importer.NewService(env.stack, env.model, env.storage, env.cfg.Storage.Bucket, logg,
			importer.WithThreshold(env.cfg.Store.BatchThreshold),
			importer.WithRecorder(env.metrics),
			importer.WithSaveRecorder(env.metrics),
		)
		features := []loader.Feature{
			importer.NewFeature(importSvc),
			export.NewFeature(export.NewService(env.stack, env.model, env.storage, env.cfg.Storage.Bucket, logg)),
			integrity.NewFeature(integrity.NewService(env.storage, env.cfg.Storage.Bucket, logg, env.backend, env.db, env.model)),
		}
		for _, f := range features {
			if err := mgr.Register(f); err != nil {
				return err
			}
		}

		// RayID first so every later log line carries it.
		app.Use(rayid.New())

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

		app.Get("/metrics", adaptor.HTTPHandler(env.metrics.Handler()))
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: env.cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		go func() {
			logg.Info("Starting server", zap.String("port", env.cfg.Server.Port))
			if err := app.Listen(env.cfg.Server.Address()); err != nil {
				logg.Error("Server stopped", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
