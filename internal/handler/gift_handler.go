package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const imageFileField = "image_file"

// noticeError — ошибка, текст которой показывается пользователю как есть.
type noticeError string

func (e noticeError) Error() string { return string(e) }

const (
	errImageTooLarge noticeError = "Image file is too large"
	errImageInvalid  noticeError = "Invalid image file"
)

// MyGifts — подарки текущего пользователя, новые сверху. Статус покупки скрыт.
func (h *Handler) MyGifts(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r)
	gifts, err := h.gifts.ListOwnGifts(r.Context(), viewer.ID)
	if err != nil {
		h.internalError(w, r, "MyGifts", err)
		return
	}
	h.render(w, r, map[string]interface{}{"gifts": gifts})
}

// GetGift — один подарок глазами текущего пользователя.
func (h *Handler) GetGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := parseGiftID(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	view, err := h.gifts.GetGift(r.Context(), giftID, viewerFrom(r).ID)
	if errors.Is(err, domain.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.internalError(w, r, "GetGift", err)
		return
	}
	h.render(w, r, map[string]interface{}{"gift": view})
}

// CreateGift сохраняет подарок; картинка может прийти файлом в той же форме.
func (h *Handler) CreateGift(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r)
	if !h.parseForm(w, r) {
		return
	}

	form := readGiftForm(r)
	if err := h.validate.Struct(form); err != nil {
		addNotice(r, categoryDanger, validationMessage(err))
		h.redirectBack(w, r, "/me/gifts")
		return
	}

	image, contentType, err := h.readImageFile(r)
	if err != nil {
		addNotice(r, categoryDanger, err.Error())
		h.redirectBack(w, r, "/me/gifts")
		return
	}

	h.logger.Info("processing request", "endpoint", "CreateGift", "user_id", viewer.ID)

	gift, err := h.gifts.CreateGift(r.Context(), viewer.ID, form.details())
	if err != nil {
		h.internalError(w, r, "CreateGift", err)
		return
	}
	if image != nil {
		h.attachImageAfterSave(r, gift.ID, viewer.ID, image, contentType)
	}

	addNotice(r, categorySuccess, "Gift created")
	h.redirect(w, r, "/me/gifts")
}

// EditGift доступен только владельцу.
func (h *Handler) EditGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := parseGiftID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	viewer := viewerFrom(r)
	if !h.parseForm(w, r) {
		return
	}

	form := readGiftForm(r)
	if err := h.validate.Struct(form); err != nil {
		addNotice(r, categoryDanger, validationMessage(err))
		h.redirectBack(w, r, "/me/gifts")
		return
	}
	image, contentType, err := h.readImageFile(r)
	if err != nil {
		addNotice(r, categoryDanger, err.Error())
		h.redirectBack(w, r, "/me/gifts")
		return
	}

	_, err = h.gifts.UpdateGift(r.Context(), giftID, viewer.ID, form.details())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(w, r)
		return
	case errors.Is(err, domain.ErrForbidden):
		h.logger.Warn("edit rejected", "gift_id", giftID, "user_id", viewer.ID)
		addNotice(r, categoryDanger, "You cannot edit this gift")
		h.redirect(w, r, "/me/gifts")
		return
	case err != nil:
		h.internalError(w, r, "EditGift", err)
		return
	}
	if image != nil {
		h.attachImageAfterSave(r, giftID, viewer.ID, image, contentType)
	}

	addNotice(r, categorySuccess, "Gift updated")
	h.redirect(w, r, "/me/gifts")
}

// DeleteGift доступен только владельцу; отметка о покупке удаляется вместе с подарком.
func (h *Handler) DeleteGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := parseGiftID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	viewer := viewerFrom(r)

	_, err := h.gifts.DeleteGift(r.Context(), giftID, viewer.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(w, r)
	case errors.Is(err, domain.ErrForbidden):
		h.logger.Warn("delete rejected", "gift_id", giftID, "user_id", viewer.ID)
		addNotice(r, categoryDanger, "You cannot delete this gift")
		h.redirect(w, r, "/me/gifts")
	case err != nil:
		h.internalError(w, r, "DeleteGift", err)
	default:
		addNotice(r, categoryInfo, "Gift deleted")
		h.redirect(w, r, "/me/gifts")
	}
}

// UploadGiftImage заменяет картинку подарка загруженным файлом.
func (h *Handler) UploadGiftImage(w http.ResponseWriter, r *http.Request) {
	giftID, ok := parseGiftID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	image, contentType, err := h.readImageFile(r)
	if err == nil && image == nil {
		err = errImageInvalid
	}
	if err != nil {
		addNotice(r, categoryDanger, err.Error())
		h.redirectBack(w, r, "/me/gifts")
		return
	}

	if h.attachImage(w, r, giftID, viewerFrom(r).ID, image, contentType) {
		addNotice(r, categorySuccess, "Gift updated")
		h.redirectBack(w, r, "/me/gifts")
	}
}

// attachImage загружает картинку и сам отвечает клиенту при ошибке.
func (h *Handler) attachImage(w http.ResponseWriter, r *http.Request, giftID, actorID uuid.UUID, image []byte, contentType string) bool {
	_, err := h.gifts.UploadGiftImage(r.Context(), giftID, actorID, bytes.NewReader(image), contentType)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(w, r)
	case errors.Is(err, domain.ErrForbidden):
		addNotice(r, categoryDanger, "You cannot edit this gift")
		h.redirect(w, r, "/me/gifts")
	case errors.Is(err, domain.ErrValidation):
		addNotice(r, categoryDanger, errImageInvalid.Error())
		h.redirectBack(w, r, "/me/gifts")
	case errors.Is(err, usecase.ErrImagesDisabled):
		h.fail(w, r, http.StatusServiceUnavailable, "image storage is not configured")
	default:
		h.internalError(w, r, "UploadGiftImage", err)
	}
	return false
}

// attachImageAfterSave загружает картинку к уже сохраненному подарку.
// Подарок остается сохраненным, ошибка картинки становится предупреждением.
func (h *Handler) attachImageAfterSave(r *http.Request, giftID, actorID uuid.UUID, image []byte, contentType string) {
	_, err := h.gifts.UploadGiftImage(r.Context(), giftID, actorID, bytes.NewReader(image), contentType)
	switch {
	case err == nil:
		return
	case errors.Is(err, usecase.ErrImagesDisabled):
		addNotice(r, categoryWarning, "Image storage is not configured, the image was not saved")
	case errors.Is(err, domain.ErrValidation):
		addNotice(r, categoryWarning, "Invalid image file, the image was not saved")
	default:
		h.logger.Error("failed to attach image to saved gift", "gift_id", giftID, "error", err)
		addNotice(r, categoryWarning, "The image could not be uploaded")
	}
}

type fetchImageRequest struct {
	URL string `json:"url"`
}

// FetchImage скачивает картинку по URL в хранилище: {"url": ...} → {"path": ...}.
func (h *Handler) FetchImage(w http.ResponseWriter, r *http.Request) {
	var req fetchImageRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req)
	if req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "URL required", h.logger)
		return
	}
	if !isHTTPURL(req.URL) {
		respondWithError(w, http.StatusBadRequest, "URL must start with http or https", h.logger)
		return
	}

	viewer := viewerFrom(r)
	h.logger.Info("processing request", "endpoint", "FetchImage", "user_id", viewer.ID)

	key, err := h.gifts.FetchImage(r.Context(), viewer.ID, req.URL)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]string{"path": key}, h.logger)
	case errors.Is(err, usecase.ErrImagesDisabled):
		respondWithError(w, http.StatusServiceUnavailable, "image storage is not configured", h.logger)
	case errors.Is(err, domain.ErrValidation):
		respondWithError(w, http.StatusBadRequest, "Unsupported image type", h.logger)
	default:
		h.logger.Warn("failed to fetch image", "url", req.URL, "error", err)
		respondWithError(w, http.StatusBadRequest, "Failed to fetch image", h.logger)
	}
}

// ServeUpload отдает картинку из объектного хранилища.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	body, contentType, err := h.gifts.OpenImage(r.Context(), key)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, usecase.ErrImagesDisabled):
		respondWithError(w, http.StatusNotFound, "not found", h.logger)
		return
	case err != nil:
		h.logger.Error("failed to open upload", "key", key, "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error", h.logger)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("failed to stream upload", "key", key, "error", err)
	}
}

// parseForm разбирает urlencoded или multipart тело с ограничением размера.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(h.maxUploadBytes + 1<<20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			addNotice(r, categoryDanger, errImageTooLarge.Error())
			h.redirectBack(w, r, "/me/gifts")
			return false
		}
		h.fail(w, r, http.StatusBadRequest, "malformed form")
		return false
	}
	return true
}

// readImageFile возвращает nil без ошибки, если файл не передан.
// Тип определяется по содержимому, а не по заголовку клиента.
func (h *Handler) readImageFile(r *http.Request) ([]byte, string, error) {
	if r.MultipartForm == nil {
		return nil, "", nil
	}
	file, _, err := r.FormFile(imageFileField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errImageInvalid
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, "", errImageInvalid
	}
	if len(data) == 0 {
		return nil, "", nil
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, "", errImageTooLarge
	}
	contentType := http.DetectContentType(data)
	if _, ok := domain.ImageExtension(contentType); !ok {
		return nil, "", errImageInvalid
	}
	return data, contentType, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
