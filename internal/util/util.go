// Package util provides content hashing, slugs, reading-time estimates and
// front matter parsing for imported posts.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"

	"github.com/mmarkdown/mmark/v2/mast"
)

const (
	WordsPerMinute = 200
	ExcerptLength  = 160
	fallbackSlug   = "post"
)

// FrontMatter is an mmark title block plus the fields Postly reads from it.
type FrontMatter struct {
	*mast.TitleData
	Image      string   `toml:"image"`
	Categories []string `toml:"categories"`

	// Consumed is the number of bytes the block took from the trimmed input.
	Consumed int    `toml:"-"`
	Body     []byte `toml:"-"`
}

// AuthorName is the first author's full name, or "".
func (f *FrontMatter) AuthorName() string {
	if f == nil || f.TitleData == nil {
		return ""
	}
	for _, a := range f.Author {
		if a.Fullname != "" {
			return a.Fullname
		}
	}
	return ""
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

// Slugify lowercases s and turns every run of characters outside [a-z0-9]
// into a single dash. Leading and trailing dashes are dropped; an empty
// result becomes "post".
func Slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
			continue
		}
		dash = true
	}
	if sb.Len() == 0 {
		return fallbackSlug
	}
	return sb.String()
}

// UniqueSlug appends -suffix to base.
func UniqueSlug(base string, suffix int64) string {
	return fmt.Sprintf("%s-%d", base, suffix)
}

func WordCount(s string) int {
	return len(strings.FieldsFunc(s, unicode.IsSpace))
}

// ReadingTime formats the minutes needed to read s at WordsPerMinute.
func ReadingTime(s string) string {
	words := WordCount(s)
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return "< 1 min read"
	}
	return fmt.Sprintf("%d min read", minutes)
}

// Excerpt collapses whitespace in text and cuts it to at most n runes,
// backing up to a word boundary and adding an ellipsis when it cuts.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := n
	for i := n; i > n/2; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimRight(string(runes[:cut]), " .,;:") + "…"
}

// GetFrontMatter reads a leading %%% TOML block. Content before the block
// means there is none.
func GetFrontMatter(md []byte) (*FrontMatter, error) {
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t\r")

	delimiter := []byte("%%%")

	if len(md) < 2*len(delimiter) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	first := bytes.Index(md[:len(delimiter)+1], delimiter)
	if first == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	second := bytes.Index(md[first+len(delimiter):], delimiter)
	if second == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	end := second + 2*len(delimiter) + 1
	if end > len(md) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	frontMatter := md[len(delimiter) : end-len(delimiter)-1]
	info := &FrontMatter{
		TitleData: &mast.TitleData{},
	}

	if _, err := toml.Decode(string(frontMatter), info); err != nil {
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	if info.Language == "" {
		info.Language = "en"
	}
	info.Consumed = end
	info.Body = bytes.TrimLeft(md[end:], "\n")

	return info, nil
}
