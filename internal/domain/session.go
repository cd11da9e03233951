package domain

// Session — явный контекст текущего пользователя. Резолвится middleware по cookie
// и передаётся параметром в каждый вызов сервисов; глобального состояния нет.
type Session struct {
	User User
	// Cookie — исходный заголовок Cookie браузера, пробрасывается в upstream как есть.
	Cookie string
}

// Authenticated сообщает, что сессия принадлежит известному пользователю.
func (s Session) Authenticated() bool {
	return s.User.Email != "" || s.User.ID != ""
}

// Actor возвращает идентификатор пользователя для журнала действий.
func (s Session) Actor() string {
	if s.User.Email != "" {
		return s.User.Email
	}
	if s.User.ID != "" {
		return s.User.ID.String()
	}
	return "anonymous"
}

// HasRole проверяет роль текущего пользователя.
func (s Session) HasRole(role Role) bool {
	return s.User.Roles.Has(role)
}
