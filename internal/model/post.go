// Package model defines the blog's stored entities and the inputs that
// create and change them.
package model

import (
	"time"
)

const (
	DefaultAuthor = "Anonymous"
	DefaultImage  = "/placeholder.svg"
)

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Slug      string    `json:"slug"`
	Author    string    `json:"author"`
	Image     string    `json:"image"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Categories []Category `json:"categories"`
}

// Path is the reading-view location of the post.
func (p *Post) Path() string {
	return "/posts/" + p.Slug
}

// CategoryIDs returns the ids of the post's categories in order.
func (p *Post) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

func (p *Post) HasCategory(id int64) bool {
	for _, c := range p.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PostInput is everything needed to create a post.
type PostInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Content     string  `json:"content" validate:"required,max=50000"`
	Author      string  `json:"author,omitempty" validate:"max=100"`
	Image       string  `json:"image,omitempty" validate:"omitempty,imageurl"`
	Published   bool    `json:"published"`
	CategoryIDs []int64 `json:"categoryIds,omitempty" validate:"dive,gt=0"`
}

// PostPatch changes only the fields that are set. A non-nil CategoryIDs
// replaces the post's categories, including with an empty list.
type PostPatch struct {
	Title       *string  `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Content     *string  `json:"content,omitempty" validate:"omitnil,min=1,max=50000"`
	Author      *string  `json:"author,omitempty" validate:"omitnil,max=100"`
	Image       *string  `json:"image,omitempty" validate:"omitempty,imageurl"`
	Published   *bool    `json:"published,omitempty"`
	CategoryIDs *[]int64 `json:"categoryIds,omitempty" validate:"omitnil,dive,gt=0"`
}

// PostFilter narrows a post listing. A nil Published lists both states.
type PostFilter struct {
	Published    *bool  `json:"published,omitempty"`
	Search       string `json:"search,omitempty"`
	CategorySlug string `json:"categorySlug,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

type CategoryPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,min=1,max=50"`
	Description *string `json:"description,omitempty" validate:"omitnil,max=500"`
}
