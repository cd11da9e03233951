package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexID — идентификатор, который upstream отдаёт то числом, то строкой.
type FlexID string

// UnmarshalJSON принимает число, строку или null.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string { return string(id) }

// Client — клиент CRM.
type Client struct {
	ID               FlexID `json:"id,omitempty"`
	Name             string `json:"name,omitempty"`
	Username         string `json:"username,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	ProfileFirstName string `json:"profileFirstName,omitempty"`
	ProfileLastName  string `json:"profileLastName,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	PostalCode       string `json:"postalCode,omitempty"`
	City             string `json:"city,omitempty"`
	CompanyName      string `json:"companyName,omitempty"`
	Status           string `json:"status,omitempty"`
}

// DisplayName возвращает первое непустое из: name, "first last", companyName, id.
func (c Client) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{c.FirstName, c.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if company := strings.TrimSpace(c.CompanyName); company != "" {
		return company
	}
	return c.ID.String()
}

// Validate требует хотя бы одно отображаемое имя.
func (c *Client) Validate() []error {
	if strings.TrimSpace(c.Name) == "" &&
		strings.TrimSpace(c.FirstName) == "" &&
		strings.TrimSpace(c.LastName) == "" &&
		strings.TrimSpace(c.CompanyName) == "" {
		return []error{ErrClientNameRequired}
	}
	return nil
}
