package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dmachibya/faithexercises-api/config"
	"github.com/dmachibya/faithexercises-api/storage"
)

var storageInitCmd = &cobra.Command{
	Use:   "storage-init",
	Short: "Create the database schema, tables and queues",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("storage init starting")

		store, err := storage.New(cfg.SQLitePath)
		if err != nil {
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}
		log.WithField("sqlite_path", cfg.SQLitePath).Info("sqlite schema migrated")

		if cfg.StorageConnectionString == "" {
			log.Info("no storage_connection_string, skipping Azure resources")
			return nil
		}
		tables, queues := azureResources(cfg)
		if err := storage.ProvisionAzure(cmd.Context(), cfg.StorageConnectionString, tables, queues); err != nil {
			return err
		}
		log.WithFields(log.Fields{"tables": tables, "queues": queues}).Info("storage init complete")
		return nil
	},
}

func azureResources(cfg *config.Config) (tables, queues []string) {
	if cfg.LedgerBackend == config.LedgerTables {
		tables = append(tables, cfg.LedgerTable)
	}
	queues = append(queues, cfg.NotifyQueue)
	return tables, queues
}
