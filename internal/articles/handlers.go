// Package articles serves the read-only legal reference corpus.
package articles

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/sanitize"
	"github.com/aldoetobex/legal-consult-backend/pkg/validation"
)

const (
	DefaultPageSize = 10
	summaryChars    = 280
)

var ErrArticleNotFound = apperr.New(apperr.NotFound, "Article not found")

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	ListArticles(ctx context.Context, f store.ArticleFilter) ([]models.Article, int64, error)
	GetArticle(ctx context.Context, id uuid.UUID) (models.Article, error)
}

// ===== DTOs =====

type ListQuery struct {
	Page     int    `json:"page" validate:"gte=1"`
	PageSize int    `json:"page_size" validate:"gte=1,lte=100"`
	Query    string `json:"query" validate:"max=200"`
	Tag      string `json:"tag" validate:"max=100"`
}

type Handler struct{ s Store }

func NewHandler(s Store) *Handler { return &Handler{s: s} }

// intQuery reads an integer query parameter; non-numeric input is reported under the field name.
func intQuery(c *fiber.Ctx, key string, def int, errs map[string][]string) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs[key] = append(errs[key], "Must be an integer")
		return def
	}
	return n
}

// List Articles godoc
// @Summary      List articles
// @Description  Newest first; query matches title, summary or court (case-insensitive); tag must be present.
// @Description  The total match count is returned in X-Total-Count.
// @Tags         articles
// @Produce      json
// @Param        page       query  int     false  "page (>= 1)"        default(1)
// @Param        page_size  query  int     false  "page size (1..100)" default(10)
// @Param        query      query  string  false  "search text"
// @Param        tag        query  string  false  "tag"
// @Success      200  {array}   models.Article
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /articles [get]
func (h *Handler) List(c *fiber.Ctx) error {
	bad := map[string][]string{}
	in := ListQuery{
		Page:     intQuery(c, "page", 1, bad),
		PageSize: intQuery(c, "page_size", DefaultPageSize, bad),
		Query:    c.Query("query"),
		Tag:      c.Query("tag"),
	}
	if len(bad) > 0 {
		return validation.Respond(c, bad)
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	rows, total, err := h.s.ListArticles(c.UserContext(), store.ArticleFilter{
		Query:    in.Query,
		Tag:      in.Tag,
		Page:     in.Page,
		PageSize: in.PageSize,
	})
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].FullText = nil
		if rows[i].Summary != nil {
			s := sanitize.Summary(*rows[i].Summary, summaryChars)
			rows[i].Summary = &s
		}
	}
	c.Set("X-Total-Count", strconv.FormatInt(total, 10))
	return c.JSON(rows)
}

// Get Article godoc
// @Summary      Article detail
// @Description  Full article including its text
// @Tags         articles
// @Produce      json
// @Param        id   path string true "article id (uuid)"
// @Success      200  {object}  models.Article
// @Failure      404  {object}  models.ErrorResponse
// @Router       /articles/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid article id")
	}
	a, err := h.s.GetArticle(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrArticleNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(a)
}
