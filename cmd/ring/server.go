package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kemeter/ring/internal/clock"
	"github.com/kemeter/ring/internal/config"
	"github.com/kemeter/ring/internal/docker"
	"github.com/kemeter/ring/internal/events"
	"github.com/kemeter/ring/internal/health"
	"github.com/kemeter/ring/internal/logging"
	"github.com/kemeter/ring/internal/notify"
	"github.com/kemeter/ring/internal/scheduler"
	"github.com/kemeter/ring/internal/store"
	"github.com/kemeter/ring/internal/web"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the ring server",
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the API server and the reconciliation loop",
	RunE:  runServer,
}

func init() {
	serverCmd.AddCommand(serverStartCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := logging.New(true, slog.LevelDebug)

	fmt.Println("ring " + version)
	fmt.Println("=============================================")
	fmt.Printf("listen    %s://%s\n", cfg.API.Scheme, cfg.ListenAddr())
	fmt.Printf("database  %s\n", cfg.DatabasePath)
	fmt.Printf("interval  %s\n", cfg.Interval())

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	db, err := store.Open(cfg.DatabasePath, cfg.DBPoolSize)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	dockerClient, err := docker.NewClient("")
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}
	defer dockerClient.Close()
	if err := dockerClient.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}

	// Notification chain: the log provider is always on and unfiltered;
	// webhook and MQTT honor the configured reason filter.
	reasons := cfg.Notifications.Reasons
	notifiers := []notify.Notifier{notify.NewLogNotifier(log)}
	if cfg.Notifications.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewFiltered(notify.NewWebhook(cfg.Notifications.WebhookURL), reasons))
		log.Info("webhook notifications enabled", "url", cfg.Notifications.WebhookURL)
	}
	if cfg.Notifications.MQTTBroker != "" {
		topic := cfg.Notifications.MQTTTopic
		if topic == "" {
			topic = "ring/events"
		}
		notifiers = append(notifiers, notify.NewFiltered(notify.NewMQTT(cfg.Notifications.MQTTBroker, topic), reasons))
		log.Info("mqtt notifications enabled", "broker", cfg.Notifications.MQTTBroker, "topic", topic)
	}
	notifier := notify.NewMulti(log, notifiers...)

	clk := clock.Real{}
	driver := docker.NewDriver(dockerClient, log)
	checker := health.New(driver, clk, log)
	bus := events.New()
	sched := scheduler.New(db, driver, checker, cfg, log, clk, bus, notifier)

	srv := web.NewServer(web.Dependencies{
		Store:    db,
		Runtime:  driver,
		Node:     &nodeReader{c: dockerClient},
		EventBus: bus,
		Pepper:   cfg.User.Salt,
		Log:      log,
	})

	go func() {
		if err := srv.ListenAndServe(cfg.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("ring started", "version", version)
	if err := sched.Run(ctx); err != nil {
		return err
	}
	log.Info("ring shutdown complete")
	return nil
}

// nodeReader bridges the Docker daemon info snapshot to the API's node view.
type nodeReader struct {
	c *docker.Client
}

func (n *nodeReader) NodeInfo(ctx context.Context) (web.NodeView, error) {
	info, err := n.c.Info(ctx)
	if err != nil {
		return web.NodeView{}, err
	}
	return web.NodeView{
		Name:              info.Name,
		OperatingSystem:   info.OperatingSystem,
		OSType:            info.OSType,
		Architecture:      info.Architecture,
		CPUs:              info.NCPU,
		MemoryBytes:       info.MemTotal,
		ServerVersion:     info.ServerVersion,
		Containers:        info.Containers,
		ContainersRunning: info.ContainersRunning,
		Images:            info.Images,
	}, nil
}
