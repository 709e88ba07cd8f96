package pgcare

import (
	"context"
	"net"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

type Storage struct {
	db *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// wrapStore adds context and maps connectivity-class failures onto the
// shared taxonomy so callers can tell retryable store outages from plain
// query errors.
func wrapStore(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(models.ErrTimeout, msg)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return errors.Wrapf(models.ErrStoreUnavailable, "%s: %v", msg, err)
	}
	return errors.Wrap(err, msg)
}
