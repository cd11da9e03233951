package access

import "github.com/vladislavdragonenkov/crm-console/internal/domain"

// NavItem — пункт бокового меню консоли.
type NavItem struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

var baseNavigation = []NavItem{
	{Name: "Dashboard", Href: "/dashboard"},
	{Name: "Produits", Href: "/products"},
	{Name: "Clients", Href: "/clients"},
	{Name: "Commandes", Href: "/orders"},
}

var adminNavigation = []NavItem{
	{Name: "Utilisateurs", Href: "/users"},
}

// Navigation возвращает меню, доступное пользователю сессии.
func Navigation(sess domain.Session) []NavItem {
	items := make([]NavItem, 0, len(baseNavigation)+len(adminNavigation))
	items = append(items, baseNavigation...)
	if sess.HasRole(domain.RoleAdmin) {
		items = append(items, adminNavigation...)
	}
	return items
}
