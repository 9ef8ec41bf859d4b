package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize bizassist configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the chat provider, retrieval settings and history store, and writes a .bizassist.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
