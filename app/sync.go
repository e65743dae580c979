package app

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/daemon"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/ldap"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/logger"
)

func init() { //nolint: gochecknoinits
	syncCmd.Flags().StringVar(&syncMode, "mode", "", "Mode to sync (user or member, empty syncs all configured modes)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Compute and report changes without writing")
	syncCmd.Flags().StringSliceVar(&syncUids, "uids", nil, "Restrict the pass to the given directory uids")

	rootCmd.AddCommand(syncCmd)
}

// ErrSyncFailed is returned when at least one mode could not be synced.
var ErrSyncFailed = errors.New("synchronization failed for at least one mode")

var (
	syncMode   string
	syncDryRun bool
	syncUids   []string

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Run a directory synchronization pass",
		PreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}

			if err = logger.Init(cfg.Log); err != nil {
				panic(err)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Reject a bad mode name before touching database or directory.
			modes := ldap.Modes()

			if syncMode != "" {
				mode, err := ldap.ParseMode(syncMode)
				if err != nil {
					return err
				}

				modes = []ldap.Mode{mode}
			}

			cmd.SilenceUsage = true

			d := daemon.New(&cfg)
			defer d.Registry.Close()

			var failed bool

			for _, mode := range modes {
				// Unnamed modes without configuration are simply not synced.
				if syncMode == "" && cfg.Mode(string(mode)) == nil {
					continue
				}

				// A failing mode is reported but does not abort the others.
				if err := syncOne(d, mode); err != nil {
					failed = true

					log.Error().Err(err).Str("mode", string(mode)).Msg("sync failed")
				}
			}

			if failed {
				return ErrSyncFailed
			}

			return nil
		},
	}
)

func syncOne(d *daemon.Daemon, mode ldap.Mode) error {
	// The bulk reader degrades an unreachable directory to an empty pass;
	// an operator-triggered sync should fail loudly instead.
	if _, err := d.Registry.Connection(mode); err != nil {
		return err
	}

	res, err := d.Syncer.SyncPersons(mode, ldap.Options{
		DryRun:    syncDryRun,
		LimitUids: syncUids,
	})
	if err != nil {
		return err
	}

	for _, a := range res.Actions {
		log.Info().
			Str("table", a.Table).
			Str("key", a.Key).
			Str("action", string(a.Op)).
			Bool("dry_run", syncDryRun).
			Msg("sync record")
	}

	log.Info().
		Str("mode", string(mode)).
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int("unchanged", res.Unchanged).
		Bool("dry_run", syncDryRun).
		Msg("sync pass finished")

	return nil
}
