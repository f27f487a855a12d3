package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Zhima-Mochi/minishop-sales/internal/application/auth"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/minishop-sales/internal/application/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/reporting"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgProductDeleted = "Producto Eliminado"
	msgClientDeleted  = "Cliente Eliminado"
	msgOrderDeleted   = "Pedido Eliminado"
)

// request is the argument object of every operation; each one reads the fields it needs.
type request struct {
	ID     string          `json:"id"`
	Token  string          `json:"token"`
	Estado string          `json:"estado"`
	Texto  string          `json:"texto"`
	Input  json.RawMessage `json:"input"`
}

func (r request) requireID() error {
	if r.ID == "" {
		return apperr.Invalid("id", "is required")
	}
	return nil
}

type operation struct {
	// limited operations go through the auth rate limiter.
	limited bool
	// scoped operations act for the calling seller and need a resolvable bearer token.
	// Other operations never read the Authorization header.
	scoped  bool
	run     func(ctx context.Context, p access.Principal, req request) (any, error)
}

func (h *Handler) serve(op operation) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req, true); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		data, err := op.run(r.Context(), principalFrom(r.Context()), req)
		if err != nil {
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("error.code", apperr.Code(err)))
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dataEnvelope{Data: data})
	})
}

func (h *Handler) operations() map[string]operation {
	return map[string]operation{
		// users
		"obtenerUsuario":    {run: h.currentUser},
		"nuevoUsuario":      {run: h.newUser, limited: true},
		"autenticarUsuario": {run: h.authenticate, limited: true},

		// products
		"obtenerProductos":   {run: h.listProducts},
		"obtenerProducto":    {run: h.getProduct},
		"nuevoProducto":      {run: h.newProduct},
		"actualizarProducto": {run: h.updateProduct},
		"eliminarProducto":   {run: h.deleteProduct},
		"buscarProducto":     {run: h.searchProducts},

		// clients
		"obtenerClientes":         {run: h.listClients},
		"obtenerClientesVendedor": {run: h.listOwnClients, scoped: true},
		"obtenerCliente":          {run: h.getClient, scoped: true},
		"nuevoCliente":            {run: h.newClient, scoped: true},
		"actualizarCliente":       {run: h.updateClient, scoped: true},
		"eliminarCliente":         {run: h.deleteClient, scoped: true},

		// orders
		"obtenerPedidos":         {run: h.listOrders},
		"obtenerPedidosVendedor": {run: h.listOwnOrders, scoped: true},
		"obtenerPedido":          {run: h.getOrder, scoped: true},
		"obtenerPedidosEstado":   {run: h.listOrdersByStatus, scoped: true},
		"nuevoPedido":            {run: h.newOrder, scoped: true},
		"actualizarPedido":       {run: h.updateOrder, scoped: true},
		"eliminarPedido":         {run: h.deleteOrder, scoped: true},

		// reports
		"mejoresClientes": {run: h.topClients},
		"mejoresVendedor": {run: h.topSellers},
	}
}

func (h *Handler) currentUser(ctx context.Context, _ access.Principal, req request) (any, error) {
	if req.Token == "" {
		return nil, apperr.Invalid("token", "is required")
	}
	p, err := h.svc.Auth.CurrentUser(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	return principalDTO(p), nil
}

func (h *Handler) newUser(ctx context.Context, _ access.Principal, req request) (any, error) {
	var in userInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	u, err := h.svc.Auth.Register(ctx, auth.RegisterInput{
		GivenName:  in.Nombre,
		FamilyName: in.Apellido,
		Email:      in.Email,
		Password:   in.Password,
	})
	if err != nil {
		return nil, err
	}
	return toUserDTO(u), nil
}

func (h *Handler) authenticate(ctx context.Context, _ access.Principal, req request) (any, error) {
	var in authInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	token, err := h.svc.Auth.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return tokenDTO{Token: token}, nil
}

func (h *Handler) listProducts(ctx context.Context, _ access.Principal, _ request) (any, error) {
	ps, err := h.svc.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return toProductDTOs(ps), nil
}

func (h *Handler) getProduct(ctx context.Context, _ access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	p, err := h.svc.Catalog.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return toProductDTO(p), nil
}

func (h *Handler) newProduct(ctx context.Context, _ access.Principal, req request) (any, error) {
	var in productInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	if in.Nombre == nil {
		return nil, apperr.Invalid("nombre", "is required")
	}
	if in.Existencia == nil {
		return nil, apperr.Invalid("existencia", "is required")
	}
	p, err := h.svc.Catalog.Create(ctx, catalog.CreateInput{Name: *in.Nombre, Price: in.Precio, Stock: *in.Existencia})
	if err != nil {
		return nil, err
	}
	return toProductDTO(p), nil
}

func (h *Handler) updateProduct(ctx context.Context, _ access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	var in productInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	p, err := h.svc.Catalog.Update(ctx, req.ID, product.Patch{Name: in.Nombre, Price: in.Precio, Stock: in.Existencia})
	if err != nil {
		return nil, err
	}
	return toProductDTO(p), nil
}

func (h *Handler) deleteProduct(ctx context.Context, _ access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	if err := h.svc.Catalog.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	return msgProductDeleted, nil
}

func (h *Handler) searchProducts(ctx context.Context, _ access.Principal, req request) (any, error) {
	ps, err := h.svc.Reports.SearchProducts(ctx, req.Texto)
	if err != nil {
		return nil, err
	}
	return toProductDTOs(ps), nil
}

func (h *Handler) listClients(ctx context.Context, _ access.Principal, _ request) (any, error) {
	cs, err := h.svc.Directory.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toClientDTOs(cs), nil
}

func (h *Handler) listOwnClients(ctx context.Context, p access.Principal, _ request) (any, error) {
	cs, err := h.svc.Directory.ListByOwner(ctx, p)
	if err != nil {
		return nil, err
	}
	return toClientDTOs(cs), nil
}

func (h *Handler) getClient(ctx context.Context, p access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	c, err := h.svc.Directory.Get(ctx, p, req.ID)
	if err != nil {
		return nil, err
	}
	return toClientDTO(c), nil
}

func (h *Handler) newClient(ctx context.Context, p access.Principal, req request) (any, error) {
	var in clientInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	c, err := h.svc.Directory.Create(ctx, p, in.details())
	if err != nil {
		return nil, err
	}
	return toClientDTO(c), nil
}

func (h *Handler) updateClient(ctx context.Context, p access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	var in clientInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	c, err := h.svc.Directory.Update(ctx, p, req.ID, in.patch())
	if err != nil {
		return nil, err
	}
	return toClientDTO(c), nil
}

func (h *Handler) deleteClient(ctx context.Context, p access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	if err := h.svc.Directory.Delete(ctx, p, req.ID); err != nil {
		return nil, err
	}
	return msgClientDeleted, nil
}

func (h *Handler) listOrders(ctx context.Context, _ access.Principal, _ request) (any, error) {
	orders, err := h.svc.Orders.List(ctx)
	if err != nil {
		return nil, err
	}
	return toOrderDTOs(orders), nil
}

func (h *Handler) listOwnOrders(ctx context.Context, p access.Principal, _ request) (any, error) {
	orders, err := h.svc.Orders.ListByOwner(ctx, p)
	if err != nil {
		return nil, err
	}
	return toOrderDTOs(orders), nil
}

func (h *Handler) getOrder(ctx context.Context, p access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	o, err := h.svc.Orders.Get(ctx, p, req.ID)
	if err != nil {
		return nil, err
	}
	return toOrderDTO(o), nil
}

func (h *Handler) listOrdersByStatus(ctx context.Context, p access.Principal, req request) (any, error) {
	st, err := order.ParseStatus(req.Estado)
	if err != nil {
		return nil, err
	}
	orders, err := h.svc.Orders.ListByStatus(ctx, p, st)
	if err != nil {
		return nil, err
	}
	return toOrderDTOs(orders), nil
}

func (h *Handler) newOrder(ctx context.Context, p access.Principal, req request) (any, error) {
	var in orderInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	if deref(in.Cliente) == "" {
		return nil, apperr.Invalid("cliente", "is required")
	}
	st, err := in.status()
	if err != nil {
		return nil, err
	}
	o, err := h.svc.Orders.Place(ctx, p, apporder.PlaceInput{
		ClientID: *in.Cliente,
		Items:    in.items(),
		Status:   deref(st),
		Total:    in.Total,
	})
	if err != nil {
		return nil, err
	}
	return toOrderDTO(o), nil
}

func (h *Handler) updateOrder(ctx context.Context, p access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	var in orderInput
	if err := decodeInput(req.Input, &in); err != nil {
		return nil, err
	}
	st, err := in.status()
	if err != nil {
		return nil, err
	}
	o, err := h.svc.Orders.Update(ctx, p, req.ID, apporder.UpdateInput{
		ClientID: in.Cliente,
		Items:    in.items(),
		Status:   st,
		Total:    in.Total,
	})
	if err != nil {
		return nil, err
	}
	return toOrderDTO(o), nil
}

func (h *Handler) deleteOrder(ctx context.Context, p access.Principal, req request) (any, error) {
	if err := req.requireID(); err != nil {
		return nil, err
	}
	if err := h.svc.Orders.Cancel(ctx, p, req.ID); err != nil {
		return nil, err
	}
	return msgOrderDeleted, nil
}

func (h *Handler) topClients(ctx context.Context, _ access.Principal, _ request) (any, error) {
	rows, err := h.svc.Reports.TopClients(ctx)
	if err != nil {
		return nil, err
	}
	return toTopClients(rows), nil
}

func (h *Handler) topSellers(ctx context.Context, _ access.Principal, _ request) (any, error) {
	rows, err := h.svc.Reports.TopSellers(ctx, reporting.DefaultTopSellers)
	if err != nil {
		return nil, err
	}
	return toTopSellers(rows), nil
}
