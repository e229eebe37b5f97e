package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"concierge/internal/config"
	"concierge/internal/fileutil"
	"concierge/internal/store"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the record store to a backup directory",
		Long:  "Copy the ticket and task documents (or the SQLite database) into a timestamped directory. The daemon must be stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("check daemon lock: %w", err)
			}
			if !locked {
				return errors.New("daemon is running; stop it before taking a backup")
			}
			defer func() { _ = lock.Unlock() }()

			target, err := backupTarget(cfg, dest, time.Now())
			if err != nil {
				return err
			}
			written, err := fileutil.BackupFiles(store.DocumentPaths(cfg), target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(written) == 0 {
				fmt.Fprintln(out, "Nothing to back up; the store is empty")
				return nil
			}
			for _, path := range written {
				fmt.Fprintf(out, "Copied %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "Backup directory (default <data_dir>/backups/<timestamp>)")
	return cmd
}

func backupTarget(cfg *config.Config, dest string, now time.Time) (string, error) {
	if dest = strings.TrimSpace(dest); dest != "" {
		return config.ExpandPath(dest)
	}
	return filepath.Join(cfg.Paths.DataDir, "backups", now.UTC().Format("20060102T150405Z")), nil
}
