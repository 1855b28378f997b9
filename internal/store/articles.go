package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// ArticleFilter narrows an article listing. Page is 1-based.
type ArticleFilter struct {
	Query    string
	Tag      string
	Page     int
	PageSize int
}

// ListArticles returns one page of matching articles, newest first, and the total match count.
func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]models.Article, int64, error) {
	filtered := func() *gorm.DB {
		q := s.conn(ctx).Model(&models.Article{})
		if term := strings.TrimSpace(f.Query); term != "" {
			like := "%" + escapeLike(term) + "%"
			q = q.Where("title ILIKE ? OR summary ILIKE ? OR court ILIKE ?", like, like, like)
		}
		if tag := strings.TrimSpace(f.Tag); tag != "" {
			q = q.Where("tags @> ARRAY[?]::text[]", tag)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	out := make([]models.Article, 0, f.PageSize)
	if err := filtered().Order("created_at DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	return out, total, nil
}

// GetArticle loads an article by id.
func (s *Store) GetArticle(ctx context.Context, id uuid.UUID) (models.Article, error) {
	var a models.Article
	if err := s.conn(ctx).First(&a, "id = ?", id).Error; err != nil {
		return models.Article{}, translate(err)
	}
	return a, nil
}

// SeedArticles inserts the articles whose title is not present yet and returns how many it added.
func (s *Store) SeedArticles(ctx context.Context, articles []models.Article) (int, error) {
	added := 0
	for i := range articles {
		a := articles[i]
		var n int64
		if err := s.conn(ctx).Model(&models.Article{}).Where("title = ?", a.Title).Count(&n).Error; err != nil {
			return added, fmt.Errorf("lookup %q: %w", a.Title, err)
		}
		if n > 0 {
			continue
		}
		if err := s.conn(ctx).Create(&a).Error; err != nil {
			return added, fmt.Errorf("insert %q: %w", a.Title, err)
		}
		added++
	}
	return added, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
