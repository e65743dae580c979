package app

import (
	"github.com/spf13/cobra"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/daemon"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the authentication bridge web service",
		PreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}

			if devMode {
				cfg.DevMode = true
			}

			if err = logger.Init(cfg.Log); err != nil {
				panic(err)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d := daemon.New(&cfg)

			go d.WaitShutdown()

			if err := d.Start(); err != nil {
				return err
			}

			return nil
		},
	}
)
