// Package storage persists rendered recipe documents per owner.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("recipe not found")
	ErrInvalidName = errors.New("invalid recipe name")
)

var namePattern = regexp.MustCompile(`^recipe_[A-Za-z0-9._\-]+\.md$`)

// RecipeMeta describes a stored recipe without its content.
type RecipeMeta struct {
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url,omitempty"`
	Created   time.Time `json:"created"`
}

// Recipe is a stored Markdown document.
type Recipe struct {
	RecipeMeta
	Content string `json:"content"`
}

// Store is the recipe persistence backend. Names are unique per owner.
// Save overwrites an existing recipe but keeps its creation time.
type Store interface {
	Save(ctx context.Context, recipe Recipe) error
	Get(ctx context.Context, owner, name string) (*Recipe, error)
	List(ctx context.Context, owner string) ([]RecipeMeta, error)
	ListAll(ctx context.Context) ([]RecipeMeta, error)
	Delete(ctx context.Context, owner, name string) error
	Close() error
}

// ValidateName rejects anything but recipe_*.md file names.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Key is the object key of a recipe: recipes/<owner>/<name>.
func Key(owner, name string) string {
	return "recipes/" + owner + "/" + name
}

func validate(owner, name string) error {
	if owner == "" || strings.Contains(owner, "/") {
		return fmt.Errorf("%w: bad owner %q", ErrInvalidName, owner)
	}
	return ValidateName(name)
}

func sortNewestFirst(metas []RecipeMeta) {
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].Created.After(metas[j].Created)
	})
}

// CountByOwner tallies recipes per owner for the admin listing.
func CountByOwner(metas []RecipeMeta) map[string]int {
	counts := make(map[string]int)
	for _, m := range metas {
		counts[m.Owner]++
	}
	return counts
}
