package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/util"
)

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// uniqueIDs drops duplicates, keeping first occurrences in order.
func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func checkCategories(ctx context.Context, database db.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var n int
	err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id IN (`+placeholders(len(ids))+`)`, args...).Scan(&n)
	if err != nil {
		return apperr.Database("check categories", errors.Wrap(err, "counting categories"))
	}
	if n != len(ids) {
		return apperr.NewValidation("categoryIds", "Unknown category")
	}
	return nil
}

// uniqueSlug slugifies name and resolves collisions within table by
// appending unix milliseconds, stepping forward until the slug is free.
func uniqueSlug(ctx context.Context, database db.DB, table, name string, exceptID int64, now func() time.Time) (string, error) {
	base := util.Slugify(name)

	taken, err := slugTaken(ctx, database, table, base, exceptID)
	if err != nil || !taken {
		return base, err
	}

	millis := now().UnixMilli()
	for {
		slug := util.UniqueSlug(base, millis)
		taken, err := slugTaken(ctx, database, table, slug, exceptID)
		if err != nil || !taken {
			return slug, err
		}
		millis++
	}
}

func slugTaken(ctx context.Context, database db.DB, table, slug string, exceptID int64) (bool, error) {
	var n int
	err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE slug = ? AND id != ?`, slug, exceptID).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "checking slug")
	}
	return n > 0, nil
}
