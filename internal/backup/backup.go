// Package backup snapshots the SQLite database, encrypts it and ships it to
// S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/store"
)

var (
	ErrNotConfigured     = errors.New("backup not configured: S3 bucket or credentials missing")
	ErrUnsupportedDriver = errors.New("backup only supports the sqlite driver")
	ErrNoPassphrase      = errors.New("backup passphrase is empty")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3     S3Config
	Prefix string
}

// Manager runs backups and keeps a record of each run in the backups table.
type Manager struct {
	cfg     Config
	db      *database.DB
	records *store.BackupStore
	client  s3Client
	now     func() time.Time
	logger  *slog.Logger
}

func NewManager(cfg Config, db *database.DB, records *store.BackupStore, logger *slog.Logger) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "billfold"
	}
	m := &Manager{
		cfg:     cfg,
		db:      db,
		records: records,
		now:     time.Now,
		logger:  logger.With("component", "backup"),
	}
	if cfg.S3.complete() {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Configured() bool {
	return m.client != nil
}

// ObjectKey is where a backup taken at t is stored.
func (m *Manager) ObjectKey(t time.Time) (filename, key string) {
	filename = t.UTC().Format("2006-01-02T150405Z") + ".db.enc"
	return filename, m.cfg.Prefix + "/" + filename
}

// Run snapshots the database with VACUUM INTO, encrypts the snapshot with a
// fresh salt and uploads it. The run is recorded whether it succeeds or not.
func (m *Manager) Run(ctx context.Context, passphrase string) (*model.Backup, error) {
	if m.client == nil {
		return nil, ErrNotConfigured
	}
	if m.db.Driver() != database.DriverSQLite {
		return nil, ErrUnsupportedDriver
	}
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}

	filename, key := m.ObjectKey(m.now())
	record, err := m.records.Create(ctx, filename, key)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	log := m.logger.With("backup_id", record.ID, "key", key)

	size, err := m.upload(ctx, record.ID, key, passphrase)
	if err != nil {
		log.Error("backup failed", "error", err)
		if uerr := m.records.UpdateStatus(ctx, record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			log.Error("record backup failure", "error", uerr)
		}
		return nil, err
	}

	if err := m.records.UpdateCompleted(ctx, record.ID, size); err != nil {
		return nil, err
	}
	log.Info("backup completed", "size_bytes", size)
	return m.records.GetByID(ctx, record.ID)
}

func (m *Manager) upload(ctx context.Context, id int64, key, passphrase string) (int64, error) {
	dir, err := os.MkdirTemp("", "billfold-backup-")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, fmt.Sprintf("snapshot-%d.db", id))
	if err := m.snapshot(ctx, snapshot); err != nil {
		return 0, err
	}

	if err := m.records.UpdateStatus(ctx, id, model.BackupStatusUploading, ""); err != nil {
		return 0, err
	}

	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	salt, err := GenerateSalt()
	if err != nil {
		return 0, err
	}
	sealed, err := Encrypt(plaintext, passphrase, salt)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(sealed)), nil
}

// snapshot writes a consistent copy of the live database to path.
func (m *Manager) snapshot(ctx context.Context, path string) error {
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("vacuum into snapshot: %w", err)
	}
	return nil
}

// List returns the most recent backup runs.
func (m *Manager) List(ctx context.Context, limit int) ([]model.Backup, error) {
	return m.records.List(ctx, limit)
}

// Cleanup deletes backups older than retentionDays, both the records and
// the stored objects. It returns how many were removed.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	if m.client == nil || retentionDays <= 0 {
		return 0, nil
	}

	before := m.now().UTC().AddDate(0, 0, -retentionDays)
	keys, err := m.records.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	return len(keys), nil
}

// Restore downloads the backup with the given id, decrypts it, checks its
// integrity and writes it to dst. The live database is never touched.
func (m *Manager) Restore(ctx context.Context, id int64, passphrase, dst string) error {
	if m.client == nil {
		return ErrNotConfigured
	}
	record, err := m.records.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return fmt.Errorf("backup %d: %w", id, store.ErrNotFound)
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read backup object: %w", err)
	}
	plaintext, err := Decrypt(sealed, passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".restore"
	if err := os.WriteFile(tmp, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("move restored database: %w", err)
	}
	m.logger.Info("backup restored", "backup_id", id, "path", dst)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open(database.DriverSQLite, path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
