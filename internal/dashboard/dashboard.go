// Package dashboard считает показатели главной страницы консоли по уже загруженным коллекциям.
package dashboard

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

const (
	recentLimit = 4
	topLimit    = 4
)

var profitRate = decimal.RequireFromString("0.6")

var monthNames = [12]string{"Jan", "Fév", "Mar", "Avr", "Mai", "Jun", "Jul", "Aoû", "Sep", "Oct", "Nov", "Déc"}

// Inputs содержит четыре коллекции, из которых строится дашборд.
type Inputs struct {
	Products []domain.Product
	Clients  []domain.Client
	Users    []domain.User
	Orders   []domain.Order
}

// MonthPoint описывает точку помесячного графика.
type MonthPoint struct {
	Name      string          `json:"name"`
	Ventes    decimal.Decimal `json:"ventes"`
	Commandes int             `json:"commandes"`
	Profit    decimal.Decimal `json:"profit"`
}

// StockBucket описывает сегмент распределения товаров по остатку.
type StockBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// RecentOrder соответствует строке блока последних подтверждённых заказов.
type RecentOrder struct {
	ID       int64              `json:"id"`
	ClientID string             `json:"clientId"`
	Client   string             `json:"client"`
	Amount   decimal.Decimal    `json:"amount"`
	Status   domain.OrderStatus `json:"status"`
	Time     string             `json:"time"`
}

// TopProduct соответствует строке блока самых продаваемых товаров.
type TopProduct struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Stats содержит всё, что показывает дашборд.
type Stats struct {
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalOrders       int             `json:"totalOrders"`
	ActiveClients     int             `json:"activeClients"`
	ProductsInStock   int64           `json:"productsInStock"`
	RegisteredUsers   int             `json:"registeredUsers"`
	SalesData         []MonthPoint    `json:"salesData"`
	StockDistribution []StockBucket   `json:"productData"`
	RecentOrders      []RecentOrder   `json:"recentOrders"`
	TopProducts       []TopProduct    `json:"topProducts"`
}

// Compute строит дашборд; результат зависит только от коллекций и now.
// Финансовые показатели считаются только по заказам в статусе CONFIRMED.
func Compute(in Inputs, now time.Time) Stats {
	confirmed := make([]domain.Order, 0, len(in.Orders))
	for _, o := range in.Orders {
		if o.Status.Normalize() == domain.OrderStatusConfirmed {
			confirmed = append(confirmed, o)
		}
	}

	revenue := decimal.Zero
	for _, o := range confirmed {
		revenue = revenue.Add(o.Total())
	}

	var stock int64
	for _, p := range in.Products {
		stock += p.Stock
	}

	return Stats{
		TotalRevenue:      revenue,
		TotalOrders:       len(confirmed),
		ActiveClients:     len(in.Clients),
		ProductsInStock:   stock,
		RegisteredUsers:   len(in.Users),
		SalesData:         monthlySeries(confirmed, now),
		StockDistribution: stockDistribution(in.Products),
		RecentOrders:      recentOrders(confirmed, in.Clients, now),
		TopProducts:       topProducts(confirmed, in.Products),
	}
}

// monthlySeries строит точки с января по текущий месяц года now; месяц заказа
// определяется в часовом поясе now.
func monthlySeries(confirmed []domain.Order, now time.Time) []MonthPoint {
	months := int(now.Month())
	series := make([]MonthPoint, months)
	for i := range series {
		series[i] = MonthPoint{Name: monthNames[i], Ventes: decimal.Zero}
	}

	for _, o := range confirmed {
		if o.CreatedAt == 0 {
			continue
		}
		at := o.CreatedTime().In(now.Location())
		if at.Year() != now.Year() || int(at.Month()) > months {
			continue
		}
		point := &series[at.Month()-1]
		point.Ventes = point.Ventes.Add(o.Total())
		point.Commandes++
	}

	for i := range series {
		series[i].Profit = series[i].Ventes.Mul(profitRate).Round(2)
	}
	return series
}

// stockDistribution раскладывает товары по четырём диапазонам остатка.
func stockDistribution(products []domain.Product) []StockBucket {
	buckets := []StockBucket{
		{Name: "Rupture", Color: "#ef4444"},
		{Name: "Stock faible", Color: "#f59e0b"},
		{Name: "Stock moyen", Color: "#3b82f6"},
		{Name: "Stock élevé", Color: "#10b981"},
	}
	for _, p := range products {
		switch {
		case p.Stock <= 0:
			buckets[0].Value++
		case p.Stock <= 10:
			buckets[1].Value++
		case p.Stock <= 50:
			buckets[2].Value++
		default:
			buckets[3].Value++
		}
	}
	return buckets
}

func recentOrders(confirmed []domain.Order, clients []domain.Client, now time.Time) []RecentOrder {
	sorted := make([]domain.Order, len(confirmed))
	copy(sorted, confirmed)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt > sorted[j].CreatedAt
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}

	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID.String()] = c.DisplayName()
	}

	rows := make([]RecentOrder, 0, len(sorted))
	for _, o := range sorted {
		label, ok := names[o.ClientID]
		if !ok {
			label = o.ClientID
		}
		rows = append(rows, RecentOrder{
			ID:       o.ID,
			ClientID: o.ClientID,
			Client:   label,
			Amount:   o.Total().Round(2),
			Status:   o.Status.Normalize(),
			Time:     AgeLabel(o.CreatedAt, now),
		})
	}
	return rows
}

// AgeLabel возвращает грубую относительную метку времени: минуты, часы, дни.
func AgeLabel(createdAtMillis int64, now time.Time) string {
	if createdAtMillis == 0 {
		return "—"
	}
	age := now.Sub(time.UnixMilli(createdAtMillis))
	switch {
	case age < time.Minute:
		return "À l'instant"
	case age < time.Hour:
		return fmt.Sprintf("Il y a %d min", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("Il y a %d h", int(age/time.Hour))
	default:
		return fmt.Sprintf("Il y a %d j", int(age/(24*time.Hour)))
	}
}

func topProducts(confirmed []domain.Order, products []domain.Product) []TopProduct {
	byID := make(map[int64]*TopProduct)
	for _, o := range confirmed {
		for _, it := range o.Items {
			row, ok := byID[it.ProductID]
			if !ok {
				row = &TopProduct{ID: it.ProductID, Revenue: decimal.Zero}
				byID[it.ProductID] = row
			}
			row.Sales += it.Quantity
			row.Revenue = row.Revenue.Add(it.Subtotal())
		}
	}

	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	rows := make([]TopProduct, 0, len(byID))
	for id, row := range byID {
		if name, ok := names[id]; ok && name != "" {
			row.Name = name
		} else {
			row.Name = "Produit #" + strconv.FormatInt(id, 10)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Sales != rows[j].Sales {
			return rows[i].Sales > rows[j].Sales
		}
		if c := rows[i].Revenue.Cmp(rows[j].Revenue); c != 0 {
			return c > 0
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > topLimit {
		rows = rows[:topLimit]
	}
	return rows
}
