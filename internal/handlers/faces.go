package handlers

import (
	"errors"
	"image"

	"github.com/gofiber/fiber/v2"

	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/recognition"
)

// RegisterFace enrolls a new identity from an uploaded frame
func (h *Handler) RegisterFace(c *fiber.Ctx) error {
	var req models.RegisterFaceRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_REQUEST",
			"Invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_REQUEST",
			"Identity name is required")
	}

	img, err := recognition.DecodeImage(req.Image, h.recogCfg.MaxPixels)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_IMAGE", err.Error())
	}

	boxes := h.engine.Detect(img)
	if len(boxes) == 0 {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "NO_FACE_FOUND",
			"No face found in the uploaded image")
	}

	embedding := h.engine.Embed(img, boxes[0])
	if _, err := h.identities.Add(req.Name, embedding); err != nil {
		if errors.Is(err, recognition.ErrIdentityExists) {
			return errorJSON(c, fiber.StatusConflict, "IDENTITY_EXISTS",
				"identity "+req.Name+" is already registered")
		}
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_REQUEST", err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(models.FaceListResponse{
		Names: h.identities.Names(),
		Total: h.identities.Count(),
	})
}

// ListFaces returns the enrolled identity names
func (h *Handler) ListFaces(c *fiber.Ctx) error {
	return c.JSON(models.FaceListResponse{
		Names: h.identities.Names(),
		Total: h.identities.Count(),
	})
}

// DeleteFace removes an enrolled identity by name
func (h *Handler) DeleteFace(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.identities.Remove(name); err != nil {
		if errors.Is(err, recognition.ErrIdentityNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "IDENTITY_NOT_FOUND",
				"identity "+name+" not found")
		}
		h.logger.Error("Failed to remove identity", "error", err, "name", name)
		return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to remove identity")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RecognizeFaces resolves faces in an uploaded frame against the known
// identities. Unmatched faces come back named "unknown".
func (h *Handler) RecognizeFaces(c *fiber.Ctx) error {
	img, boxes, err := h.decodeAndDetect(c)
	if err != nil {
		return err
	}

	known := h.identities.Identities()
	faces := make([]models.Face, 0, len(boxes))
	for _, box := range boxes {
		name := models.UnknownIdentity
		embedding := h.engine.Embed(img, box)
		if matched, ok := h.engine.Match(embedding, known, h.recogCfg.Tolerance); ok {
			name = matched
		}
		faces = append(faces, models.Face{Name: name, Box: box})
	}

	return c.JSON(models.RecognizeResponse{Faces: faces})
}

// DetectFaces locates faces in an uploaded frame without resolving them
func (h *Handler) DetectFaces(c *fiber.Ctx) error {
	_, boxes, err := h.decodeAndDetect(c)
	if err != nil {
		return err
	}
	return c.JSON(models.DetectResponse{Boxes: boxes})
}

// decodeAndDetect parses the recognize/detect request body and runs
// detection. A non-nil error has already been written as a response.
func (h *Handler) decodeAndDetect(c *fiber.Ctx) (image.Image, []models.BoundingBox, error) {
	var req models.RecognizeRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, errorJSON(c, fiber.StatusBadRequest, "INVALID_REQUEST",
			"Invalid request body: "+err.Error())
	}

	img, err := recognition.DecodeImage(req.Image, h.recogCfg.MaxPixels)
	if err != nil {
		return nil, nil, errorJSON(c, fiber.StatusBadRequest, "INVALID_IMAGE", err.Error())
	}

	return img, h.engine.Detect(img), nil
}
