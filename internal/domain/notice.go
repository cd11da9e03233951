package domain

// NoticeVariant задаёт вид уведомления в интерфейсе.
type NoticeVariant string

const (
	NoticeDefault     NoticeVariant = "default"
	NoticeDestructive NoticeVariant = "destructive"
)

// Notice — неблокирующее уведомление, которое консоль показывает пользователю.
type Notice struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Variant     NoticeVariant `json:"variant"`
}

// ErrorNotice возвращает уведомление об ошибке с заголовком "Erreur".
func ErrorNotice(description string) Notice {
	return Notice{Title: "Erreur", Description: description, Variant: NoticeDestructive}
}

// SuccessNotice возвращает обычное уведомление об успешном действии.
func SuccessNotice(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: NoticeDefault}
}

// Refreshed — ответ на изменение: коллекция, перечитанная после мутации, и уведомления.
type Refreshed[T any] struct {
	Items   []T      `json:"items"`
	Notices []Notice `json:"notices,omitempty"`
}
