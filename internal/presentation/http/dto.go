package httppresentation

import (
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/application/reporting"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
	"github.com/shopspring/decimal"
)

// money renders a decimal as a bare JSON number.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).String()), nil
}

type userDTO struct {
	ID       string     `json:"id"`
	Nombre   string     `json:"nombre"`
	Apellido string     `json:"apellido"`
	Email    string     `json:"email"`
	Creado   *time.Time `json:"creado,omitempty"`
}

func toUserDTO(u *user.User) *userDTO {
	if u == nil {
		return nil
	}
	created := u.CreatedAt
	return &userDTO{ID: u.ID, Nombre: u.GivenName, Apellido: u.FamilyName, Email: u.Email, Creado: &created}
}

func principalDTO(p access.Principal) userDTO {
	return userDTO{ID: p.ID, Nombre: p.GivenName, Apellido: p.FamilyName, Email: p.Email}
}

type productDTO struct {
	ID         string    `json:"id"`
	Nombre     string    `json:"nombre"`
	Existencia int       `json:"existencia"`
	Precio     money     `json:"precio"`
	Creado     time.Time `json:"creado"`
}

func toProductDTO(p *product.Product) productDTO {
	return productDTO{ID: p.ID, Nombre: p.Name, Existencia: p.Stock, Precio: money(p.Price), Creado: p.CreatedAt}
}

func toProductDTOs(ps []*product.Product) []productDTO {
	out := make([]productDTO, len(ps))
	for i, p := range ps {
		out[i] = toProductDTO(p)
	}
	return out
}

type clientDTO struct {
	ID       string    `json:"id"`
	Nombre   string    `json:"nombre"`
	Apellido string    `json:"apellido"`
	Empresa  string    `json:"empresa"`
	Email    string    `json:"email"`
	Telefono string    `json:"telefono,omitempty"`
	Vendedor string    `json:"vendedor"`
	Creado   time.Time `json:"creado"`
}

func toClientDTO(c *client.Client) *clientDTO {
	if c == nil {
		return nil
	}
	return &clientDTO{
		ID:       c.ID,
		Nombre:   c.GivenName,
		Apellido: c.FamilyName,
		Empresa:  c.Company,
		Email:    c.Email,
		Telefono: c.Phone,
		Vendedor: c.OwnerID,
		Creado:   c.CreatedAt,
	}
}

func toClientDTOs(cs []*client.Client) []*clientDTO {
	out := make([]*clientDTO, len(cs))
	for i, c := range cs {
		out[i] = toClientDTO(c)
	}
	return out
}

type lineDTO struct {
	ID       string `json:"id"`
	Cantidad int    `json:"cantidad"`
	Nombre   string `json:"nombre"`
	Precio   money  `json:"precio"`
}

type orderDTO struct {
	ID       string    `json:"id"`
	Pedido   []lineDTO `json:"pedido"`
	Total    money     `json:"total"`
	Cliente  string    `json:"cliente"`
	Vendedor string    `json:"vendedor"`
	Estado   string    `json:"estado"`
	Creado   time.Time `json:"creado"`
}

func toOrderDTO(o *order.Order) orderDTO {
	lines := make([]lineDTO, len(o.Items))
	for i, it := range o.Items {
		lines[i] = lineDTO{ID: it.ProductID, Cantidad: it.Quantity, Nombre: it.Name, Precio: money(it.Price)}
	}
	return orderDTO{
		ID:       o.ID,
		Pedido:   lines,
		Total:    money(o.Total),
		Cliente:  o.ClientID,
		Vendedor: o.OwnerID,
		Estado:   string(o.Status),
		Creado:   o.CreatedAt,
	}
}

func toOrderDTOs(orders []*order.Order) []orderDTO {
	out := make([]orderDTO, len(orders))
	for i, o := range orders {
		out[i] = toOrderDTO(o)
	}
	return out
}

type topClientDTO struct {
	Total   money      `json:"total"`
	Cliente *clientDTO `json:"cliente"`
}

type topSellerDTO struct {
	Total    money    `json:"total"`
	Vendedor *userDTO `json:"vendedor"`
}

func toTopClients(rows []reporting.ClientTotal) []topClientDTO {
	out := make([]topClientDTO, len(rows))
	for i, r := range rows {
		out[i] = topClientDTO{Total: money(r.Total), Cliente: toClientDTO(r.Client)}
	}
	return out
}

func toTopSellers(rows []reporting.SellerTotal) []topSellerDTO {
	out := make([]topSellerDTO, len(rows))
	for i, r := range rows {
		out[i] = topSellerDTO{Total: money(r.Total), Vendedor: toUserDTO(r.Seller)}
	}
	return out
}

type tokenDTO struct {
	Token string `json:"token"`
}

type userInput struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type productInput struct {
	Nombre     *string          `json:"nombre"`
	Precio     *decimal.Decimal `json:"precio"`
	Existencia *int             `json:"existencia"`
}

type clientInput struct {
	Nombre   *string `json:"nombre"`
	Apellido *string `json:"apellido"`
	Empresa  *string `json:"empresa"`
	Email    *string `json:"email"`
	Telefono *string `json:"telefono"`
}

func (in clientInput) details() client.Details {
	return client.Details{
		GivenName:  deref(in.Nombre),
		FamilyName: deref(in.Apellido),
		Company:    deref(in.Empresa),
		Email:      deref(in.Email),
		Phone:      deref(in.Telefono),
	}
}

func (in clientInput) patch() client.Patch {
	return client.Patch{
		GivenName:  in.Nombre,
		FamilyName: in.Apellido,
		Company:    in.Empresa,
		Email:      in.Email,
		Phone:      in.Telefono,
	}
}

// itemInput also tolerates the nombre/precio echo some clients send; both are
// ignored in favour of the catalog's current values.
type itemInput struct {
	ID       string `json:"id"`
	Cantidad int    `json:"cantidad"`
}

type orderInput struct {
	Cliente *string          `json:"cliente"`
	Pedido  []itemInput      `json:"pedido"`
	Total   *decimal.Decimal `json:"total"`
	Estado  *string          `json:"estado"`
}

func (in orderInput) items() []order.ItemRequest {
	if in.Pedido == nil {
		return nil
	}
	out := make([]order.ItemRequest, len(in.Pedido))
	for i, it := range in.Pedido {
		out[i] = order.ItemRequest{ProductID: it.ID, Quantity: it.Cantidad}
	}
	return out
}

func (in orderInput) status() (*order.Status, error) {
	if in.Estado == nil {
		return nil, nil
	}
	st, err := order.ParseStatus(*in.Estado)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
