package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/Zilean/pkg/champion"
)

// ErrNotFound is returned by a Backend when no snapshot exists for an id.
var ErrNotFound = errors.New("storage: champion not found")

// Backend stores raw snapshots by champion id.
type Backend interface {
	// Get returns the snapshot for id, or ErrNotFound.
	Get(ctx context.Context, id uint32) ([]byte, error)
	// Put stores the snapshot for id, replacing any previous one.
	Put(ctx context.Context, id uint32, snapshot []byte) error
	// List returns the ids of every stored champion.
	List(ctx context.Context) ([]uint32, error)
	// Close releases the backend's resources.
	Close() error
}

// Database loads and stores champions through a Backend.
type Database struct {
	backend Backend
	opts    []champion.Option
	logger  *slog.Logger
}

// NewDatabase returns a Database on top of backend. The options are applied
// to every champion it creates.
func NewDatabase(backend Backend, opts ...champion.Option) *Database {
	return &Database{
		backend: backend,
		opts:    opts,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Database. By default, all logs are discarded.
func (d *Database) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Load returns the stored champion for id. If nothing is stored, or the
// stored snapshot cannot be read, an empty champion is returned instead.
func (d *Database) Load(ctx context.Context, id uint32) *champion.Champion {
	c, err := d.Fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			d.logger.WarnContext(ctx, "Failed to load champion, using an empty one",
				slog.Uint64("champion_id", uint64(id)),
				slog.String("error", err.Error()),
			)
		}
		return champion.New(id, d.opts...)
	}
	return c
}

// Fetch returns the stored champion for id. It returns ErrNotFound when
// nothing is stored, and champion.ErrMalformedSnapshot when the stored
// snapshot is corrupt.
func (d *Database) Fetch(ctx context.Context, id uint32) (*champion.Champion, error) {
	data, err := d.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := champion.New(id, d.opts...)
	if err = c.Deserialize(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Store persists the champion's current snapshot under its id.
func (d *Database) Store(ctx context.Context, c *champion.Champion) error {
	data, err := c.Serialize()
	if err != nil {
		return fmt.Errorf("could not serialize champion %d: %w", c.Id(), err)
	}
	if err = d.backend.Put(ctx, c.Id(), data); err != nil {
		return fmt.Errorf("could not store champion %d: %w", c.Id(), err)
	}
	d.logger.DebugContext(ctx, "Champion stored",
		slog.Uint64("champion_id", uint64(c.Id())),
		slog.Int("snapshot_bytes", len(data)),
	)
	return nil
}

// List returns the ids of every stored champion.
func (d *Database) List(ctx context.Context) ([]uint32, error) {
	return d.backend.List(ctx)
}

// Close closes the underlying backend.
func (d *Database) Close() error {
	return d.backend.Close()
}
