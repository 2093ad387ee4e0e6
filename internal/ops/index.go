package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/db"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/record"
)

// IndexInput contains parameters for the Index operation.
type IndexInput struct {
	Source string // required, must be configured
	Path   string // optional, default: sources[source].new
}

// IndexOutput contains the result of the Index operation.
type IndexOutput struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Path        string `json:"path"`
	RecordCount int    `json:"record_count"`
	Duplicates  int    `json:"duplicates"`
	LoadedAt    int64  `json:"loaded_at"`
}

// Index loads the latest snapshot of a source into the search index,
// replacing the previous one.
func Index(ctx context.Context, database *sql.DB, cfg *config.Config, log logrus.FieldLogger, input IndexInput) (*IndexOutput, error) {
	name, sc, err := lookupSource(cfg, input.Source)
	if err != nil {
		return nil, err
	}

	path := firstNonBlank(input.Path, sc.New)
	if path == "" {
		return nil, errors.NewInvalidRequest("snapshot path is required for source " + name)
	}

	snap, err := record.Load(path, loadOptions(name, sc))
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, err
	}

	load := db.SnapshotLoad{
		ID:         id,
		Source:     name,
		Path:       path,
		Columns:    snap.Columns,
		Duplicates: snap.Duplicates,
		LoadedAt:   time.Now().Unix(),
	}
	if err := db.ReplaceSnapshot(ctx, database, load, snap.Records); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"source":  name,
		"path":    path,
		"records": len(snap.Records),
	}).Info("snapshot indexed")

	return &IndexOutput{
		ID:          id,
		Source:      name,
		Path:        path,
		RecordCount: len(snap.Records),
		Duplicates:  snap.Duplicates,
		LoadedAt:    load.LoadedAt,
	}, nil
}

// DropIndex removes the indexed snapshot of a source. A source that was never
// indexed is NOT_FOUND.
func DropIndex(ctx context.Context, database *sql.DB, cfg *config.Config, log logrus.FieldLogger, source string) error {
	name, _, err := lookupSource(cfg, source)
	if err != nil {
		return err
	}
	if err := db.DeleteLoad(ctx, database, name); err != nil {
		return err
	}
	log.WithField("source", name).Info("index dropped")
	return nil
}
