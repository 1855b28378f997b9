// Package attachments stores files for any entity in Supabase Storage and records them as
// Attachment rows pointing at their owner.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/validation"
)

const (
	maxFileSize  = 10 * 1024 * 1024
	signedURLTTL = 60 // seconds
)

var allowedMimes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

var (
	ErrOwnerNotFound      = apperr.New(apperr.InvalidInput, "Owner entity does not exist")
	ErrAttachmentNotFound = apperr.New(apperr.NotFound, "Attachment not found")
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	OwnerExists(ctx context.Context, kind models.EntityType, id uuid.UUID) (bool, error)
	CreateAttachment(ctx context.Context, a *models.Attachment) error
	ListAttachments(ctx context.Context, kind models.EntityType, id uuid.UUID) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, id uuid.UUID) (models.Attachment, error)
}

// ===== DTOs =====

// Owner names the entity an attachment belongs to.
type Owner struct {
	EntityType string `json:"entity_type" validate:"required,oneof=user lawyer request payment article"`
	EntityID   string `json:"entity_id" validate:"required,uuid"`
}

func (o Owner) parse() (models.EntityType, uuid.UUID) {
	return models.EntityType(o.EntityType), uuid.MustParse(o.EntityID) // validated
}

type SignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

type Handler struct {
	s       Store
	objects *Bucket
	log     logrus.FieldLogger
}

func NewHandler(s Store, objects *Bucket, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{s: s, objects: objects, log: log}
}

func storageUnavailable() error {
	return fiber.NewError(fiber.StatusServiceUnavailable, ErrStorageDisabled.Error())
}

func (h *Handler) checkOwner(ctx context.Context, kind models.EntityType, id uuid.UUID) error {
	ok, err := h.s.OwnerExists(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOwnerNotFound
	}
	return nil
}

// Upload Attachment godoc
// @Summary      Upload attachment
// @Description  Store one PDF/PNG/JPEG (max 10MB) for an existing user, lawyer, request, payment or article
// @Tags         attachments
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        entity_type  formData  string  true  "user|lawyer|request|payment|article"
// @Param        entity_id    formData  string  true  "owner id (uuid)"
// @Param        file         formData  file    true  "PDF/PNG/JPEG"
// @Success      201  {object}  models.Attachment
// @Failure      400  {object}  models.ErrorResponse
// @Failure      503  {object}  models.ErrorResponse
// @Router       /attachments [post]
func (h *Handler) Upload(c *fiber.Ctx) error {
	in := Owner{
		EntityType: strings.TrimSpace(c.FormValue("entity_type")),
		EntityID:   strings.TrimSpace(c.FormValue("entity_id")),
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	kind, ownerID := in.parse()

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required (multipart key: file)")
	}
	if fh.Size <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty file")
	}
	if fh.Size > maxFileSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "max 10MB per file")
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if !allowedMimes[ct] {
		return fiber.NewError(fiber.StatusBadRequest, "only PDF, PNG or JPEG are allowed")
	}

	ctx := c.UserContext()
	if err := h.checkOwner(ctx, kind, ownerID); err != nil {
		return err
	}
	if !h.objects.Configured() {
		return storageUnavailable()
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := ObjectKey(kind, ownerID, fh.Filename)
	if err := h.objects.Upload(ctx, key, f, ct); err != nil {
		return fmt.Errorf("store object: %w", err)
	}

	a := models.Attachment{EntityType: &kind, EntityID: &ownerID, S3URL: &key, Mime: &ct}
	if err := h.s.CreateAttachment(ctx, &a); err != nil {
		h.objects.RemoveObjects(ctx, []models.Attachment{a})
		return err
	}

	h.log.WithFields(logrus.Fields{
		"attachment_id": a.ID,
		"entity_type":   kind,
		"entity_id":     ownerID,
		"size":          fh.Size,
	}).Info("attachment stored")
	return c.Status(fiber.StatusCreated).JSON(a)
}

// List Attachments godoc
// @Summary      List attachments
// @Description  Attachments of one owner entity
// @Tags         attachments
// @Security     BearerAuth
// @Produce      json
// @Param        entity_type  query  string  true  "user|lawyer|request|payment|article"
// @Param        entity_id    query  string  true  "owner id (uuid)"
// @Success      200  {array}   models.Attachment
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /attachments [get]
func (h *Handler) List(c *fiber.Ctx) error {
	in := Owner{
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		EntityID:   strings.TrimSpace(c.Query("entity_id")),
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	kind, ownerID := in.parse()

	rows, err := h.s.ListAttachments(c.UserContext(), kind, ownerID)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// Signed Download URL godoc
// @Summary      Get signed URL
// @Description  Short-lived download URL for a stored attachment
// @Tags         attachments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "attachment id (uuid)"
// @Success      200  {object}  SignedURLResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      503  {object}  models.ErrorResponse
// @Router       /attachments/{id}/signed-url [get]
func (h *Handler) SignedURL(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid attachment id")
	}
	a, err := h.s.GetAttachment(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAttachmentNotFound
	}
	if err != nil {
		return err
	}
	if a.S3URL == nil || *a.S3URL == "" {
		return ErrAttachmentNotFound
	}
	if !h.objects.Configured() {
		return storageUnavailable()
	}

	url, err := h.objects.SignedURL(c.UserContext(), *a.S3URL, signedURLTTL)
	if err != nil {
		return fmt.Errorf("sign object: %w", err)
	}
	return c.JSON(SignedURLResponse{URL: url, ExpiresIn: signedURLTTL})
}
