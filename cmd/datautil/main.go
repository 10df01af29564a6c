// datautil manages the tournament data files: backups, restores, and
// single-file exports/imports. It operates on the JSON documents
// directly, so it can run against a stopped server.
package main

import (
	"fmt"
	"os"

	"llm-tournament-system/utils"

	"github.com/spf13/cobra"
)

var (
	dataDir    string
	backupRoot string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "datautil",
		Short:         "Data management utilities for the LLM tournament service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "directory holding the tournament data files")
	rootCmd.PersistentFlags().StringVar(&backupRoot, "backup-dir", "backups", "directory holding backup snapshots")

	rootCmd.AddCommand(
		backupCmd(),
		restoreCmd(),
		listCmd(),
		exportCmd(),
		importCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of all data files",
		RunE: func(cmd *cobra.Command, args []string) error {
			backupDir, err := utils.SnapshotData(dataDir, backupRoot)
			if err != nil {
				return err
			}
			fmt.Println("✅ Backup completed:", backupDir)
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup_dir>",
		Short: "Restore data from a backup snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.RestoreData(dataDir, args[0]); err != nil {
				return err
			}
			fmt.Println("✅ Restore completed from", args[0])
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available backup snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := utils.ListBackups(backupRoot)
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Println("📁 No backups found")
				return nil
			}
			fmt.Println("📁 Available backups:")
			for _, b := range backups {
				fmt.Println("  -", b)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [filename]",
		Short: "Export all data to a single JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFile := "tournament_data_export.json"
			if len(args) > 0 {
				exportFile = args[0]
			}
			if err := utils.ExportData(dataDir, exportFile); err != nil {
				return err
			}
			fmt.Println("📤 Data exported to", exportFile)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <filename>",
		Short: "Import data from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.ImportData(dataDir, args[0]); err != nil {
				return err
			}
			fmt.Println("📥 Data imported from", args[0])
			return nil
		},
	}
}
