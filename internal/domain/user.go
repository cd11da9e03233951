package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role — имя роли в auth-сервисе.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

// RoleSet — плоский набор имён ролей. /me присылает строки, /users — объекты {"name": ...};
// оба вида приводятся к одному представлению при декодировании.
type RoleSet []Role

// NewRoleSet нормализует имена: верхний регистр, без пустых и повторов.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, 0, len(names))
	seen := make(map[Role]struct{}, len(names))
	for _, name := range names {
		r := Role(strings.ToUpper(strings.TrimSpace(name)))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		set = append(set, r)
	}
	return set
}

// UnmarshalJSON принимает строку, массив строк или массив объектов с полем name.
func (rs *RoleSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*rs = RoleSet{}
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*rs = NewRoleSet(single)
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			names = append(names, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			names = append(names, obj.Name)
		}
	}
	*rs = NewRoleSet(names...)
	return nil
}

// Has проверяет наличие роли.
func (rs RoleSet) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// HasAny проверяет наличие хотя бы одной из ролей.
func (rs RoleSet) HasAny(roles ...Role) bool {
	for _, role := range roles {
		if rs.Has(role) {
			return true
		}
	}
	return false
}

// Primary возвращает первую роль или USER, если ролей нет.
func (rs RoleSet) Primary() Role {
	if len(rs) == 0 {
		return RoleUser
	}
	return rs[0]
}

// User — учётная запись auth-сервиса.
type User struct {
	ID        FlexID  `json:"id,omitempty"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName,omitempty"`
	LastName  string  `json:"lastName,omitempty"`
	Name      string  `json:"name,omitempty"`
	Roles     RoleSet `json:"roles"`
	Status    string  `json:"status,omitempty"`
	Avatar    string  `json:"avatar,omitempty"`
	LastLogin string  `json:"lastLogin,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// UnmarshalJSON дополнительно понимает одиночное поле role.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		Role RoleSet `json:"role"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(u.Roles) == 0 && len(aux.Role) > 0 {
		u.Roles = aux.Role
	}
	if u.Roles == nil {
		u.Roles = RoleSet{}
	}
	return nil
}

// DisplayName возвращает имя пользователя для журналов и интерфейса.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName)); full != "" {
		return full
	}
	return u.Email
}

// UserUpdate — payload PUT /users/{id}: роль и статус в верхнем регистре.
type UserUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

// Normalize приводит роль и статус к формату auth-сервиса.
func (u UserUpdate) Normalize() UserUpdate {
	u.Email = strings.TrimSpace(u.Email)
	u.Role = strings.ToUpper(strings.TrimSpace(u.Role))
	if u.Role == "" {
		u.Role = string(RoleUser)
	}
	u.Status = strings.ToUpper(strings.TrimSpace(u.Status))
	if u.Status == "" {
		u.Status = "INACTIVE"
	}
	return u
}

// Validate проверяет обязательные поля изменения пользователя.
func (u UserUpdate) Validate() []error {
	if strings.TrimSpace(u.Email) == "" {
		return []error{ErrEmailRequired}
	}
	return nil
}

// Registration — payload POST /register.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate проверяет обязательные поля регистрации.
func (r Registration) Validate() []error {
	var errs []error
	if strings.TrimSpace(r.Email) == "" {
		errs = append(errs, ErrEmailRequired)
	}
	if r.Password == "" {
		errs = append(errs, ErrPasswordRequired)
	}
	return errs
}

// Credentials — payload POST /login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
