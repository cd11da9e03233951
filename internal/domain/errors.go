package domain

import "errors"

var (
	// Ошибка отсутствующего клиента в заказе.
	ErrClientRequired = errors.New("client is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка позиции без товара.
	ErrItemProductRequired = errors.New("item product is required")
	// Ошибка при некорректном количестве товара (< 1).
	ErrItemQtyInvalid = errors.New("item quantity must be at least 1")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка товара без названия.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной цены товара.
	ErrProductPriceInvalid = errors.New("product price must be non-negative")
	// Ошибка отрицательного стока товара.
	ErrProductStockInvalid = errors.New("product stock must be non-negative")
	// Ошибка клиента без какого-либо отображаемого имени.
	ErrClientNameRequired = errors.New("client name, first/last name or company name is required")
	// Ошибка пользователя без email.
	ErrEmailRequired = errors.New("email is required")
	// Ошибка регистрации без пароля.
	ErrPasswordRequired = errors.New("password is required")

	// ErrOrderLocked — заказ в статусе FAILED/CANCELLED нельзя изменять.
	ErrOrderLocked = errors.New("order is locked")
	// ErrCancelNotConfirmed — отмена заказа требует явного подтверждения.
	ErrCancelNotConfirmed = errors.New("order cancellation must be confirmed")
	// ErrOrderAlreadyCancelled — повторная отмена заказа.
	ErrOrderAlreadyCancelled = errors.New("order is already cancelled")
	// ErrOrderNotFound возвращается, если заказ не найден у gateway.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidID — идентификатор в пути запроса не разобрался.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrUnauthenticated — нет действующей сессии.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden — у текущего пользователя нет нужной роли.
	ErrForbidden = errors.New("insufficient role")

	// ErrUpstreamUnavailable — upstream-сервис не ответил или ответил 5xx.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamNotFound — upstream вернул 404.
	ErrUpstreamNotFound = errors.New("upstream resource not found")
	// ErrUpstreamUnsupported — upstream не поддерживает метод/маршрут (404/405 на листинг).
	ErrUpstreamUnsupported = errors.New("upstream endpoint unsupported")
	// ErrUpstreamRejected — upstream отклонил запрос (4xx).
	ErrUpstreamRejected = errors.New("upstream rejected request")
	// ErrUpstreamMalformed — upstream ответил 2xx, но тело не разбирается как JSON.
	ErrUpstreamMalformed = errors.New("upstream returned malformed body")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrBrokerUnavailable — брокер временно отклоняет публикации (circuit breaker открыт).
	ErrBrokerUnavailable = errors.New("message broker unavailable")
)

var validationErrors = []error{
	ErrClientRequired,
	ErrItemsRequired,
	ErrItemProductRequired,
	ErrItemQtyInvalid,
	ErrItemPriceInvalid,
	ErrProductNameRequired,
	ErrProductPriceInvalid,
	ErrProductStockInvalid,
	ErrClientNameRequired,
	ErrEmailRequired,
	ErrPasswordRequired,
	ErrInvalidID,
}

// IsValidation проверяет, является ли ошибка ошибкой валидации входных данных.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsUpstream проверяет, пришла ли ошибка от upstream-сервиса.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrUpstreamNotFound) ||
		errors.Is(err, ErrUpstreamUnsupported) ||
		errors.Is(err, ErrUpstreamRejected) ||
		errors.Is(err, ErrUpstreamMalformed)
}
