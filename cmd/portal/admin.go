package main

import (
	"context"
	"fmt"
	"time"

	"dustbinpro/internal/database"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/outbox"
	"dustbinpro/internal/repository"
	"dustbinpro/internal/session"

	"github.com/spf13/cobra"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the document store indexes",
	RunE:  runIndexes,
}

var (
	sessionUID      string
	sessionEmail    string
	sessionName     string
	sessionVerified bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Issue a customer session in Redis and print its cookie value",
	Long: "Sign-in lives in the separate auth app; this issues the same session " +
		"record it would, for local development and smoke tests.",
	RunE: runSessionIssue,
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and maintain the notice outbox",
	RunE:  runOutboxStatus,
}

var outboxRequeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Move failed notice tasks back to pending",
	RunE:  runOutboxRequeue,
}

var purgeAge time.Duration

var outboxPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete completed notice tasks older than --age",
	RunE:  runOutboxPurge,
}

func init() {
	sessionCmd.Flags().StringVar(&sessionUID, "uid", "", "customer uid")
	sessionCmd.Flags().StringVar(&sessionEmail, "email", "", "customer email")
	sessionCmd.Flags().StringVar(&sessionName, "name", "", "customer display name")
	sessionCmd.Flags().BoolVar(&sessionVerified, "verified", true, "mark the email as verified")
	_ = sessionCmd.MarkFlagRequired("uid")

	outboxPurgeCmd.Flags().DurationVar(&purgeAge, "age", 7*24*time.Hour, "minimum age of completed tasks to delete")
	outboxCmd.AddCommand(outboxRequeueCmd, outboxPurgeCmd)
}

func runIndexes(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := loadConfigAndLogger("indexes")
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	db, err := database.NewDB(ctx, cfg.Store.URI, cfg.Store.Database, cfg.Store.Timeout, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(context.Background()) }()

	if err := db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info().Msg("indexes ensured")
	return nil
}

func runSessionIssue(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := loadConfigAndLogger("session")
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required to share a session with the portal")
	}
	client := repository.NewRedisClient(cfg.Redis)
	defer func() { _ = repository.Close(client) }()
	if err := repository.Ping(cmd.Context(), client); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	manager := session.NewManager(repository.NewRedisSessionStore(client, cfg.Session.TTL), cfg.Session, logger)
	s, err := manager.Issue(cmd.Context(), session.Identity{
		UID:           sessionUID,
		Email:         sessionEmail,
		EmailVerified: sessionVerified,
		CustomerName:  sessionName,
	})
	if err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", manager.CookieName(), s.ID)
	return nil
}

func openOutbox(component string) (*outbox.Store, func(), error) {
	cfg, logger, closer, err := loadConfigAndLogger(component)
	if err != nil {
		return nil, nil, err
	}
	store, err := outbox.Open(cfg.Outbox.Path, logging.Component(logger, "outbox"))
	if err != nil {
		closeQuietly(closer)
		return nil, nil, err
	}
	return store, func() {
		_ = store.Close()
		closeQuietly(closer)
	}, nil
}

func runOutboxStatus(cmd *cobra.Command, args []string) error {
	store, done, err := openOutbox("outbox")
	if err != nil {
		return err
	}
	defer done()

	counts, err := store.Counts(cmd.Context())
	if err != nil {
		return err
	}
	for _, status := range []string{outbox.StatusPending, outbox.StatusRetry, outbox.StatusCompleted, outbox.StatusFailed} {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n", status, counts[status])
	}
	return nil
}

func runOutboxRequeue(cmd *cobra.Command, args []string) error {
	store, done, err := openOutbox("outbox")
	if err != nil {
		return err
	}
	defer done()

	n, err := store.RequeueFailed(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "requeued %d task(s)\n", n)
	return nil
}

func runOutboxPurge(cmd *cobra.Command, args []string) error {
	store, done, err := openOutbox("outbox")
	if err != nil {
		return err
	}
	defer done()

	n, err := store.Purge(cmd.Context(), time.Now().Add(-purgeAge))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d task(s)\n", n)
	return nil
}
