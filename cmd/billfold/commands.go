package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/billfold/internal/amqp"
	"github.com/dukerupert/billfold/internal/notify"
	"github.com/dukerupert/billfold/internal/push"
)

func newScanCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run the due-bill reminder scan once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(a.cfg.NotifyChannels()) == 0 {
				return errors.New("no notification channels configured (BILLFOLD_NOTIFY_CHANNELS)")
			}
			scanner, closeScanner, err := a.scanner()
			if err != nil {
				return err
			}
			defer closeScanner()

			report, err := scanner.ScanAndNotify(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "owners=%d bills=%d sent=%d failed=%d\n",
				report.Owners, report.Bills, report.Sent, report.Failed)
			return nil
		},
	}
}

// newWorkerCommand consumes queued due-bill batches and delivers them over
// the direct channels, reconnecting to the broker with backoff.
func newWorkerCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-worker",
		Short: "Deliver reminders published to the AMQP queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.AMQP.URL == "" {
				return errors.New("notify-worker needs an AMQP url (BILLFOLD_AMQP_URL)")
			}
			channels, err := a.channels()
			if err != nil {
				return err
			}
			if len(channels) == 0 {
				return errors.New("notify-worker needs at least one of email, push or telegram")
			}
			handler := notify.WorkerHandler(notify.NewMulti(a.logger, channels...))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for attempt := 0; ; attempt++ {
				client, err := a.dialAMQP()
				if err == nil {
					attempt = 0
					err = client.ConsumeDueBills(ctx, handler)
					client.Close()
				}
				if ctx.Err() != nil {
					return nil
				}
				wait := amqp.Backoff(attempt)
				a.logger.Warn("amqp consumer stopped, reconnecting", "error", err, "wait", wait)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the database applies migrations.
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.db.MigrationVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at migration version %d\n", v)
			return nil
		},
	}
}

func newBackupCommand(configPath *string) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage encrypted database backups",
	}

	var ba *app
	backupCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		a, err := openApp(*configPath)
		if err != nil {
			return err
		}
		if !a.cfg.BackupEnabled() {
			a.Close()
			return errors.New("backup storage is not configured (BILLFOLD_S3_BUCKET and credentials)")
		}
		ba = a
		return nil
	}
	backupCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return ba.Close()
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Snapshot, encrypt and upload the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ba.backups().Run(cmd.Context(), ba.cfg.Backup.Passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d uploaded to %s (%d bytes)\n", b.ID, b.ObjectKey, b.SizeBytes)
			return nil
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent backup runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := ba.backups().List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSIZE\tCREATED\tKEY")
			for _, b := range backups {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", b.ID, b.Status, b.SizeBytes, b.CreatedAt.Format(time.RFC3339), b.ObjectKey)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete backups older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ba.backups().Cleanup(cmd.Context(), ba.cfg.Backup.RetentionDays)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d backups\n", n)
			return nil
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <id> <destination>",
		Short: "Download and decrypt a backup to a new database file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid backup id %q", args[0])
			}
			if _, err := os.Stat(args[1]); err == nil {
				return fmt.Errorf("%s already exists", args[1])
			}
			if err := ba.backups().Restore(cmd.Context(), id, ba.cfg.Backup.Passphrase, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d restored to %s\n", id, args[1])
			return nil
		},
	}

	backupCmd.AddCommand(runCmd, listCmd, cleanupCmd, restoreCmd)
	return backupCmd
}

func newVAPIDKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate a VAPID key pair for web push",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "BILLFOLD_VAPID_PUBLIC_KEY=%s\n", pub)
			fmt.Fprintf(out, "BILLFOLD_VAPID_PRIVATE_KEY=%s\n", priv)
			return nil
		},
	}
}
