// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
)

var (
	configPath string // Path to the directory holding main.toml

	cfg config.Config
	err error

	rootCmd = &cobra.Command{
		Use:   "contao-ldap-bundle",
		Short: "LDAP directory synchronization and authentication bridge for Contao",
		Long: `contao-ldap-bundle keeps Contao backend users and frontend members in
sync with LDAP directory subtrees and authenticates logins against the
directory instead of the local password column.`,
		Args: cobra.OnlyValidArgs,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration directory")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
