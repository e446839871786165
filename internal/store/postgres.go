package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const notifyChannel = "bee_documents"

type document struct {
	Path      string `gorm:"primaryKey"`
	Value     []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (document) TableName() string { return "documents" }

// Postgres keeps documents in one table and announces every write with
// pg_notify so other processes see it through their own listener.
type Postgres struct {
	db     *gorm.DB
	dsn    string
	subs   *watchers
	log    *zap.Logger
	cancel context.CancelFunc
	group  *errgroup.Group
}

func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrUnavailable, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
	}

	lctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(lctx)
	p := &Postgres{
		db:     db,
		dsn:    dsn,
		subs:   newWatchers(),
		log:    log.Named("store"),
		cancel: cancel,
		group:  g,
	}
	g.Go(func() error { return p.listen(gctx) })

	p.log.Info("postgres store ready")
	return p, nil
}

func (p *Postgres) Get(ctx context.Context, path string) ([]byte, error) {
	if !validPath(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	var doc document
	err := p.db.WithContext(ctx).Where("path = ?", path).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, path, err)
	}
	return doc.Value, nil
}

func (p *Postgres) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	if !validPath(prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, prefix)
	}
	var docs []document
	err := p.db.WithContext(ctx).Where("starts_with(path, ?)", prefix+"/").Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, prefix, err)
	}
	out := make(map[string][]byte, len(docs))
	for _, d := range docs {
		if isChild(prefix, d.Path) {
			out[d.Path] = d.Value
		}
	}
	return out, nil
}

func (p *Postgres) Set(ctx context.Context, path string, value []byte) error {
	return p.Update(ctx, []Write{{Path: path, Value: value}})
}

// Update runs every write in one transaction. Notifications are only
// delivered by Postgres once the transaction commits.
func (p *Postgres) Update(ctx context.Context, writes []Write) error {
	for _, w := range writes {
		if !validPath(w.Path) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, w.Path)
		}
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			if w.Value == nil {
				if err := tx.Where("path = ?", w.Path).Delete(&document{}).Error; err != nil {
					return err
				}
			} else {
				doc := document{Path: w.Path, Value: w.Value, UpdatedAt: time.Now().UTC()}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "path"}},
					DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
				}).Create(&doc).Error
				if err != nil {
					return err
				}
			}
			if err := tx.Exec("SELECT pg_notify(?, ?)", notifyChannel, w.Path).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: update: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) Subscribe(path string, fn func(Change)) (func(), error) {
	if !validPath(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return p.subs.add(path, fn), nil
}

func (p *Postgres) Close() error {
	p.cancel()
	err := p.group.Wait()
	p.subs.clear()

	sqlDB, dbErr := p.db.DB()
	if dbErr != nil {
		return multierr.Append(err, dbErr)
	}
	return multierr.Append(err, sqlDB.Close())
}

func (p *Postgres) listen(ctx context.Context) error {
	const maxBackoff = 5 * time.Second
	backoff := 100 * time.Millisecond
	for {
		connected, err := p.listenOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = 100 * time.Millisecond
		}
		p.log.Warn("listener disconnected", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (p *Postgres) listenOnce(ctx context.Context) (bool, error) {
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return false, err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return false, err
	}
	p.resync(ctx)
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		p.dispatch(ctx, n.Payload, false)
	}
}

// resync replays every watched path once LISTEN is in place. Anything
// written while no listener was connected produced no notification.
func (p *Postgres) resync(ctx context.Context) {
	paths := p.subs.paths()
	if len(paths) == 0 {
		return
	}
	p.log.Info("resyncing subscribers", zap.Int("paths", len(paths)))
	for _, path := range paths {
		p.dispatch(ctx, path, true)
	}
}

func (p *Postgres) dispatch(ctx context.Context, path string, resync bool) {
	v, err := p.Get(ctx, path)
	switch {
	case errors.Is(err, ErrNotFound):
		p.subs.notify(Change{Path: path, Deleted: true, Resync: resync})
	case err != nil:
		p.log.Error("read after notify", zap.String("path", path), zap.Error(err))
	default:
		p.subs.notify(Change{Path: path, Value: v, Resync: resync})
	}
}
