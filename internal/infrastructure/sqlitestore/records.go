package sqlitestore

import (
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
	"github.com/shopspring/decimal"
)

// Stored documents use the Spanish field names of the sales database (nombre, existencia, ...).

type userRecord struct {
	ID         string    `json:"id"`
	GivenName  string    `json:"nombre"`
	FamilyName string    `json:"apellido"`
	Email      string    `json:"email"`
	Password   string    `json:"password"`
	CreatedAt  time.Time `json:"creado"`
}

func fromUser(u *user.User) userRecord {
	return userRecord{
		ID:         u.ID,
		GivenName:  u.GivenName,
		FamilyName: u.FamilyName,
		Email:      u.Email,
		Password:   u.PasswordHash,
		CreatedAt:  u.CreatedAt,
	}
}

func (r userRecord) toDomain() *user.User {
	return &user.User{
		ID:           r.ID,
		GivenName:    r.GivenName,
		FamilyName:   r.FamilyName,
		Email:        r.Email,
		PasswordHash: r.Password,
		CreatedAt:    r.CreatedAt,
	}
}

type productRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"nombre"`
	Price     decimal.Decimal `json:"precio"`
	Stock     int             `json:"existencia"`
	CreatedAt time.Time       `json:"creado"`
	UpdatedAt time.Time       `json:"actualizado"`
}

func fromProduct(p *product.Product) productRecord {
	return productRecord{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r productRecord) toDomain() *product.Product {
	return &product.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Stock:     r.Stock,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type clientRecord struct {
	ID         string    `json:"id"`
	GivenName  string    `json:"nombre"`
	FamilyName string    `json:"apellido"`
	Company    string    `json:"empresa"`
	Email      string    `json:"email"`
	Phone      string    `json:"telefono,omitempty"`
	OwnerID    string    `json:"vendedor"`
	CreatedAt  time.Time `json:"creado"`
	UpdatedAt  time.Time `json:"actualizado"`
}

func fromClient(c *client.Client) clientRecord {
	return clientRecord{
		ID:         c.ID,
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Company:    c.Company,
		Email:      c.Email,
		Phone:      c.Phone,
		OwnerID:    c.OwnerID,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (r clientRecord) toDomain() *client.Client {
	return &client.Client{
		ID:         r.ID,
		GivenName:  r.GivenName,
		FamilyName: r.FamilyName,
		Company:    r.Company,
		Email:      r.Email,
		Phone:      r.Phone,
		OwnerID:    r.OwnerID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type lineRecord struct {
	ProductID string          `json:"id"`
	Quantity  int             `json:"cantidad"`
	Name      string          `json:"nombre"`
	Price     decimal.Decimal `json:"precio"`
}

type orderRecord struct {
	ID        string          `json:"id"`
	Items     []lineRecord    `json:"pedido"`
	Total     decimal.Decimal `json:"total"`
	ClientID  string          `json:"cliente"`
	OwnerID   string          `json:"vendedor"`
	Status    string          `json:"estado"`
	CreatedAt time.Time       `json:"creado"`
	UpdatedAt time.Time       `json:"actualizado"`
}

func fromOrder(o *order.Order) orderRecord {
	items := make([]lineRecord, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineRecord{ProductID: it.ProductID, Quantity: it.Quantity, Name: it.Name, Price: it.Price}
	}
	return orderRecord{
		ID:        o.ID,
		Items:     items,
		Total:     o.Total,
		ClientID:  o.ClientID,
		OwnerID:   o.OwnerID,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (r orderRecord) toDomain() *order.Order {
	items := make([]order.LineItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = order.LineItem{ProductID: it.ProductID, Quantity: it.Quantity, Name: it.Name, Price: it.Price}
	}
	return &order.Order{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		ClientID:  r.ClientID,
		Status:    order.Status(r.Status),
		Total:     r.Total,
		Items:     items,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
