package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"tasklist/app/config"
	"tasklist/app/controllers"
	"tasklist/app/events"
	"tasklist/app/logger"
	"tasklist/app/metrics"
	"tasklist/app/middleware"
	"tasklist/app/routes"
	"tasklist/app/services"
	"tasklist/app/store"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "tasklist"
	app.Usage = "in-memory task list served over HTTP"
	app.Flags = config.Flags()
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	base, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := base.WithField("service", "tasklist")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	ctx := context.Background()
	shutdownOps := map[string]gfshutdown.Operation{}

	publisher := events.Fanout{events.LogPublisher{Logger: log}}
	if cfg.Neo4j.Enabled() {
		driver, err := config.InitNeo4j(ctx, cfg.Neo4j)
		if err != nil {
			return err
		}
		journal := events.NewNeo4jPublisher(driver, cfg.Neo4j.Database)
		if err := journal.EnsureSchema(ctx); err != nil {
			driver.Close(ctx)
			return err
		}
		publisher = append(publisher, journal)
		shutdownOps["neo4j"] = driver.Close
		log.WithField("uri", cfg.Neo4j.URI).Info("task event journal enabled")
	}

	taskService := services.NewTaskService(store.New(), publisher, m, log)
	taskController := controllers.NewTaskController(taskService, cfg.ConfirmDeletes, log)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, taskController, m)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: middleware.RequestID(middleware.Logging(log)(router)),
	}
	shutdownOps["http-server"] = server.Shutdown

	go func() {
		log.WithField("addr", cfg.Addr).Info("tasklist starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, shutdownOps)
	exitCode := <-wait
	log.WithField("exit_code", exitCode).Info("tasklist stopped")
	if exitCode != 0 {
		return cli.NewExitError("shutdown did not complete cleanly", exitCode)
	}
	return nil
}
