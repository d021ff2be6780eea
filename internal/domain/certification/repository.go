package certification

import (
	"context"
)

// Repository - хранилище выданных сертификатов.
type Repository interface {
	// Get возвращает последний сертификат ученика по сертификации.
	// Возвращает shared.ErrCertificateNotFound, если сертификат не выдавался.
	Get(ctx context.Context, learnerID, certificationID string) (*UserCertification, error)

	// GetByNumber ищет сертификат по номеру.
	// Возвращает shared.ErrCertificateNotFound, если номера нет.
	GetByNumber(ctx context.Context, number string) (*UserCertification, error)

	// NumberExists проверяет занятость номера.
	NumberExists(ctx context.Context, number string) (bool, error)

	// Create сохраняет новый сертификат.
	// Возвращает shared.ErrCertificateNumberTaken при коллизии номера
	// и shared.ErrCertificateAlreadyIssued, если действующий сертификат уже есть.
	Create(ctx context.Context, c *UserCertification) error

	// Update сохраняет отзыв сертификата с проверкой Version.
	Update(ctx context.Context, c *UserCertification) error
}
