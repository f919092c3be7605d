package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/model"
)

const DefaultPollInterval = 10 * time.Second

const postColumns = `p.id, p.title, p.content, p.slug, p.author, p.image, p.published, p.created_at, p.updated_at`

type DBPostRepository struct { // implements PostRepository
	db db.DB

	now          func() time.Time
	pollInterval time.Duration
}

type Option func(*DBPostRepository)

// WithClock sets the source of created_at and updated_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *DBPostRepository) { r.now = now }
}

func WithPollInterval(d time.Duration) Option {
	return func(r *DBPostRepository) { r.pollInterval = d }
}

func NewDBPostRepository(db db.DB, opts ...Option) *DBPostRepository {
	r := &DBPostRepository{
		db:           db,
		now:          time.Now,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner) (model.Post, error) {
	var p model.Post
	var image sql.NullString
	err := s.Scan(&p.ID, &p.Title, &p.Content, &p.Slug, &p.Author, &image, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Image = model.DefaultImage
	if image.Valid && image.String != "" {
		p.Image = image.String
	}
	p.Categories = []model.Category{}
	return p, nil
}

func (r *DBPostRepository) List(ctx context.Context, f model.PostFilter) ([]model.Post, error) {
	var where []string
	var args []any

	if f.Published != nil {
		where = append(where, "p.published = ?")
		args = append(args, *f.Published)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, "(p.title LIKE ? OR p.content LIKE ? OR p.author LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.CategorySlug != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM post_categories pc JOIN categories c ON c.id = pc.category_id
			WHERE pc.post_id = p.id AND c.slug = ?)`)
		args = append(args, f.CategorySlug)
	}

	query := "SELECT " + postColumns + " FROM posts p"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?"

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(f.Offset, 0))

	posts, err := r.queryPosts(ctx, query, args...)
	if err != nil {
		return nil, apperr.Database("list posts", err)
	}
	return posts, nil
}

// queryPosts reads every row before attaching categories. The sqlite
// handle has a single connection, so rows must be closed first.
func (r *DBPostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scanning post")
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "iterating posts")
	}
	rows.Close()

	if err := r.attachCategories(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *DBPostRepository) attachCategories(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	index := make(map[int64]int, len(posts))
	args := make([]any, 0, len(posts))
	for i, p := range posts {
		index[p.ID] = i
		args = append(args, p.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT pc.post_id, c.id, c.name, c.description, c.slug, c.created_at
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id IN (`+placeholders(len(args))+`)
		ORDER BY pc.id`, args...)
	if err != nil {
		return errors.Wrap(err, "querying post categories")
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var c model.Category
		if err := rows.Scan(&postID, &c.ID, &c.Name, &c.Description, &c.Slug, &c.CreatedAt); err != nil {
			return errors.Wrap(err, "scanning post category")
		}
		if i, ok := index[postID]; ok {
			posts[i].Categories = append(posts[i].Categories, c)
		}
	}
	return errors.Wrap(rows.Err(), "iterating post categories")
}

func (r *DBPostRepository) getOne(ctx context.Context, where string, arg any) (*model.Post, error) {
	posts, err := r.queryPosts(ctx, "SELECT "+postColumns+" FROM posts p WHERE "+where+" LIMIT 1", arg)
	if err != nil {
		return nil, apperr.Database("get post", err)
	}
	if len(posts) == 0 {
		return nil, apperr.NewNotFound("post", arg)
	}
	return &posts[0], nil
}

func (r *DBPostRepository) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.getOne(ctx, "p.slug = ?", slug)
}

func (r *DBPostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	return r.getOne(ctx, "p.id = ?", id)
}

// ListByCategorySlug lists the posts of one category. It fails with a
// NotFoundError when no category has the slug.
func (r *DBPostRepository) ListByCategorySlug(ctx context.Context, slug string, published *bool) ([]model.Post, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE slug = ?`, slug).Scan(&exists)
	if err != nil {
		return nil, apperr.Database("get category", errors.Wrap(err, "counting categories"))
	}
	if exists == 0 {
		return nil, apperr.NewNotFound("category", slug)
	}
	return r.List(ctx, model.PostFilter{CategorySlug: slug, Published: published})
}

func (r *DBPostRepository) Create(ctx context.Context, in model.PostInput) (*model.Post, error) {
	ids := uniqueIDs(in.CategoryIDs)
	if err := checkCategories(ctx, r.db, ids); err != nil {
		return nil, err
	}

	slug, err := r.slugFor(ctx, in.Title, 0)
	if err != nil {
		return nil, apperr.Database("create post", err)
	}

	author := in.Author
	if author == "" {
		author = model.DefaultAuthor
	}
	image := in.Image
	if image == "" {
		image = model.DefaultImage
	}

	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (title, content, slug, author, image, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Content, slug, author, image, in.Published, now, now,
	)
	if err != nil {
		return nil, apperr.Database("create post", errors.Wrap(err, "inserting post"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Database("create post", errors.Wrap(err, "reading post id"))
	}

	if err := r.setCategories(ctx, id, ids); err != nil {
		return nil, apperr.Database("create post", err)
	}

	repoLogger.Info().Int64("post_id", id).Str("slug", slug).Msg("Post created")
	return r.GetByID(ctx, id)
}

func (r *DBPostRepository) Update(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error) {
	post, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if patch.CategoryIDs != nil {
		ids = uniqueIDs(*patch.CategoryIDs)
		if err := checkCategories(ctx, r.db, ids); err != nil {
			return nil, err
		}
	}

	if patch.Title != nil && *patch.Title != post.Title {
		post.Title = *patch.Title
		if post.Slug, err = r.slugFor(ctx, post.Title, id); err != nil {
			return nil, apperr.Database("update post", err)
		}
	}
	if patch.Content != nil {
		post.Content = *patch.Content
	}
	if patch.Author != nil {
		post.Author = *patch.Author
	}
	if patch.Image != nil {
		post.Image = *patch.Image
	}
	if patch.Published != nil {
		post.Published = *patch.Published
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, slug = ?, author = ?, image = ?, published = ?, updated_at = ?
		WHERE id = ?`,
		post.Title, post.Content, post.Slug, post.Author, post.Image, post.Published, r.now().UTC(), id,
	)
	if err != nil {
		return nil, apperr.Database("update post", errors.Wrap(err, "updating post"))
	}

	if patch.CategoryIDs != nil {
		if err := r.setCategories(ctx, id, ids); err != nil {
			return nil, apperr.Database("update post", err)
		}
	}

	repoLogger.Info().Int64("post_id", id).Str("slug", post.Slug).Msg("Post updated")
	return r.GetByID(ctx, id)
}

func (r *DBPostRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = ?`, id); err != nil {
		return apperr.Database("delete post", errors.Wrap(err, "deleting post categories"))
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return apperr.Database("delete post", errors.Wrap(err, "deleting post"))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NewNotFound("post", id)
	}

	repoLogger.Info().Int64("post_id", id).Msg("Post deleted")
	return nil
}

func (r *DBPostRepository) setCategories(ctx context.Context, postID int64, ids []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = ?`, postID); err != nil {
		return errors.Wrap(err, "clearing post categories")
	}
	for _, cid := range ids {
		_, err := r.db.ExecContext(ctx, `INSERT INTO post_categories (post_id, category_id) VALUES (?, ?)`, postID, cid)
		if err != nil {
			return errors.Wrapf(err, "attaching category %d", cid)
		}
	}
	return nil
}

// slugFor derives a slug from title that no post other than exceptID holds.
// A taken slug gets the current unix milliseconds appended.
func (r *DBPostRepository) slugFor(ctx context.Context, title string, exceptID int64) (string, error) {
	return uniqueSlug(ctx, r.db, "posts", title, exceptID, r.now)
}
