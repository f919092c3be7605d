package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// The go-sqlite3 driver returns MAX() over a DATETIME column as a string.
var timeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// LatestUpdate returns the newest updated_at across all posts, or the zero
// time when there are none.
func (r *DBPostRepository) LatestUpdate(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM posts`).Scan(&latest); err != nil {
		return time.Time{}, errors.Wrap(err, "scanning latest update time")
	}
	if !latest.Valid {
		return time.Time{}, nil
	}

	var parseErr error
	for _, format := range timeFormats {
		t, err := time.Parse(format, latest.String)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}
	return time.Time{}, errors.Wrapf(parseErr, "parsing latest update time %q", latest.String)
}

// ChangedSince returns the slugs of posts updated strictly after t.
func (r *DBPostRepository) ChangedSince(ctx context.Context, t time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slug FROM posts WHERE updated_at > ? ORDER BY updated_at`, t.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "querying changed posts")
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, errors.Wrap(err, "scanning changed post")
		}
		slugs = append(slugs, slug)
	}
	return slugs, errors.Wrap(rows.Err(), "iterating changed posts")
}

func (r *DBPostRepository) Watch(ctx context.Context, notify func(slug string)) {
	last, err := r.LatestUpdate(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error checking latest modification time")
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		last = r.poll(ctx, last, notify)
	}
}

// poll does one round of Watch and returns the new high-water mark.
func (r *DBPostRepository) poll(ctx context.Context, last time.Time, notify func(slug string)) time.Time {
	latest, err := r.LatestUpdate(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error checking latest modification time")
		return last
	}
	if !latest.After(last) {
		repoLogger.Debug().Msg("No posts modified, skipping reload")
		return last
	}

	slugs, err := r.ChangedSince(ctx, last)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error reloading posts")
		return last
	}

	for _, slug := range slugs {
		repoLogger.Info().Str("slug", slug).Msg("Post changed, notifying")
		notify(slug)
	}
	return latest
}
