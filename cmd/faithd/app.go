package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/config"
	"github.com/dmachibya/faithexercises-api/domain"
	"github.com/dmachibya/faithexercises-api/notify"
	"github.com/dmachibya/faithexercises-api/progress"
	"github.com/dmachibya/faithexercises-api/storage"
)

// ledgerStore is a progress ledger backend usable by the API and the
// dashboard.
type ledgerStore interface {
	progress.Store
	HasProgress(ctx context.Context, taskID int64) (bool, error)
	PurgeTask(ctx context.Context, taskID int64) error
	storage.EntrySource
}

// app holds the dependencies shared by serve and worker.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	clock  domain.Clock
	store  *storage.Store
	ledger ledgerStore
	redis  *redis.Client
}

func newApp(cfg *config.Config) (*app, error) {
	logger := log.StandardLogger()
	store, err := storage.New(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		clock:  domain.SystemClock{Location: cfg.Location()},
		store:  store,
		ledger: store,
	}
	if cfg.LedgerBackend == config.LedgerTables {
		tl, err := storage.NewTableLedger(cfg.StorageConnectionString, cfg.LedgerTable)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("table ledger: %w", err)
		}
		a.ledger = tl
	}
	a.redis = redis.NewClient(redisOptions(cfg.RedisConnectionString))
	logger.WithFields(log.Fields{
		"sqlite_path":    cfg.SQLitePath,
		"ledger_backend": cfg.LedgerBackend,
		"timezone":       cfg.Location().String(),
	}).Info("storage ready")
	return a, nil
}

// dispatcher builds the notification dispatcher and the queue it schedules
// deferred jobs on.
func (a *app) dispatcher(ctx context.Context) (*notify.Dispatcher, *storage.QueueScheduler, error) {
	gateway, err := notify.NewFCMGateway(ctx, notify.FCMConfig{
		ProjectID:       a.cfg.FCMProjectID,
		CredentialsFile: a.cfg.FCMCredentialsFile,
		CredentialsJSON: a.cfg.FCMCredentialsJSON,
	}, a.logger)
	if err != nil {
		return nil, nil, err
	}
	scheduler, err := storage.NewQueueScheduler(a.cfg.StorageConnectionString, a.cfg.NotifyQueue)
	if err != nil {
		return nil, nil, fmt.Errorf("notification queue: %w", err)
	}
	registry := storage.NewScheduleRegistry(a.redis, a.cfg.ScheduleRegistryTTL)
	return notify.NewDispatcher(gateway, scheduler, registry, a.clock, a.cfg.FCMTopic, a.logger,
		notify.WithAnnouncements(a.store)), scheduler, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.logger.WithError(err).Warn("redis close")
	}
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("storage close")
	}
}

// redisOptions accepts a redis:// URL or an Azure style connection string
// "host:port,password=...,ssl=True".
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
