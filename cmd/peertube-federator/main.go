package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/auth"
	"github.com/mckinnon/PeerTube/internal/config"
	"github.com/mckinnon/PeerTube/internal/database"
	"github.com/mckinnon/PeerTube/internal/images"
	"github.com/mckinnon/PeerTube/internal/logging"
	"github.com/mckinnon/PeerTube/internal/outbox"
	"github.com/mckinnon/PeerTube/internal/redundancy"
	"github.com/mckinnon/PeerTube/internal/replica"
	"github.com/mckinnon/PeerTube/internal/server"
	"github.com/mckinnon/PeerTube/internal/update"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "peertube-federator",
		Short: "Federation update reconciliation service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("admin-secret", "", "Admin API shared secret (overrides env)")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("admin.token_ttl_minutes"), "Admin token TTL in minutes")
	cmd.PersistentFlags().Bool("redundancy-auto-accept", defaults.GetBool("redundancy.auto_accept"), "Accept redundancy notices from any known actor")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "admin.secret", "admin-secret")
	bindFlag(cmd, "admin.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "redundancy.auto_accept", "redundancy-auto-accept")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	actorStore, err := replica.NewActorStore(replica.ActorStoreConfig{Database: db})
	if err != nil {
		return err
	}
	videoStore, err := replica.NewVideoStore(replica.VideoStoreConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	playlistStore, err := replica.NewPlaylistStore(replica.PlaylistStoreConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	redundancyPolicy, err := redundancy.NewPolicy(redundancy.PolicyConfig{
		Database:   db,
		AutoAccept: appConfig.RedundancyAutoAccept,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	forwardQueue, err := outbox.NewQueue(outbox.QueueConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}

	updateService, err := update.NewService(update.ServiceConfig{
		Database:   db,
		Signers:    actorStore,
		Videos:     videoStore,
		Validator:  activity.NewValidator(),
		Redundancy: redundancyPolicy,
		Images:     images.NewResolver(),
		Playlists:  playlistStore,
		Forwarder:  forwardQueue,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.AdminSecret),
		Issuer:        "peertube-federator",
		Audience:      "peertube-admin",
		TokenTTL:      appConfig.AdminTokenTTL,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		UpdateService: updateService,
		Signers:       actorStore,
		TokenManager:  tokenManager,
		Videos:        videoStore,
		Redundancy:    redundancyPolicy,
		AdminSecret:   appConfig.AdminSecret,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
