package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/model"
)

type DBCategoryRepository struct { // implements CategoryRepository
	db  db.DB
	now func() time.Time
}

func NewDBCategoryRepository(db db.DB) *DBCategoryRepository {
	return &DBCategoryRepository{db: db, now: time.Now}
}

const categoryColumns = `id, name, description, slug, created_at`

func (r *DBCategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, apperr.Database("list categories", errors.Wrap(err, "querying categories"))
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &c.CreatedAt); err != nil {
			return nil, apperr.Database("list categories", errors.Wrap(err, "scanning category"))
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database("list categories", errors.Wrap(err, "iterating categories"))
	}
	return categories, nil
}

func (r *DBCategoryRepository) getOne(ctx context.Context, where string, arg any) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE `+where, arg).
		Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFound("category", arg)
	}
	if err != nil {
		return nil, apperr.Database("get category", errors.Wrap(err, "scanning category"))
	}
	return &c, nil
}

func (r *DBCategoryRepository) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return r.getOne(ctx, "slug = ?", slug)
}

func (r *DBCategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *DBCategoryRepository) Create(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	slug, err := uniqueSlug(ctx, r.db, "categories", in.Name, 0, r.now)
	if err != nil {
		return nil, apperr.Database("create category", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, slug, created_at) VALUES (?, ?, ?, ?)`,
		in.Name, in.Description, slug, r.now().UTC(),
	)
	if err != nil {
		return nil, apperr.Database("create category", errors.Wrap(err, "inserting category"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Database("create category", errors.Wrap(err, "reading category id"))
	}

	repoLogger.Info().Int64("category_id", id).Str("slug", slug).Msg("Category created")
	return r.GetByID(ctx, id)
}

func (r *DBCategoryRepository) Update(ctx context.Context, id int64, patch model.CategoryPatch) (*model.Category, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != c.Name {
		c.Name = *patch.Name
		if c.Slug, err = uniqueSlug(ctx, r.db, "categories", c.Name, id, r.now); err != nil {
			return nil, apperr.Database("update category", err)
		}
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, slug = ? WHERE id = ?`,
		c.Name, c.Description, c.Slug, id,
	)
	if err != nil {
		return nil, apperr.Database("update category", errors.Wrap(err, "updating category"))
	}
	return c, nil
}

func (r *DBCategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_categories WHERE category_id = ?`, id); err != nil {
		return apperr.Database("delete category", errors.Wrap(err, "detaching posts"))
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return apperr.Database("delete category", errors.Wrap(err, "deleting category"))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NewNotFound("category", id)
	}

	repoLogger.Info().Int64("category_id", id).Msg("Category deleted")
	return nil
}
