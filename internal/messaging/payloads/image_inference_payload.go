package payloads

import "github.com/google/uuid"

// ImageInferencePayload представляет данные, необходимые воркеру, чтобы найти
// картинку товара по странице и записать ее в подарок через RabbitMQ.
type ImageInferencePayload struct {
	GiftID  uuid.UUID `json:"gift_id"`
	PageURL string    `json:"page_url"`
}
