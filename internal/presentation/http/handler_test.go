package httppresentation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zhima-Mochi/minishop-sales/internal/application/auth"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/directory"
	apporder "github.com/Zhima-Mochi/minishop-sales/internal/application/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/reporting"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newServices(t *testing.T, tel observability.Observability) Services {
	t.Helper()
	ids := id.NewUUIDGenerator()
	tokens, err := auth.NewTokens([]byte("test-secret"), 0)
	require.NoError(t, err)

	users := memory.NewUserRepository()
	clients := memory.NewClientRepository()
	orders := memory.NewOrderRepository()
	cat := catalog.NewService(memory.NewProductRepository(), ids, tel)

	return Services{
		Auth:      auth.NewService(users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, ids, tel),
		Catalog:   cat,
		Directory: directory.NewService(clients, ids, tel),
		Orders:    apporder.NewService(orders, clients, cat, ids, nil, tel),
		Reports:   reporting.NewService(orders, clients, users, cat, tel),
	}
}

func newRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	return NewHandler(newServices(t, observability.Nop()), observability.Nop(), opts).Router()
}

type response struct {
	Status int
	Header http.Header
	Data   json.RawMessage `json:"data"`
	Error  *errorBody      `json:"error"`
}

func call(t *testing.T, h http.Handler, op, token string, args any) response {
	t.Helper()
	var body io.Reader = http.NoBody
	if args != nil {
		raw, err := json.Marshal(args)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/"+op, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := response{Status: rec.Code, Header: rec.Header()}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (r response) decode(t *testing.T, dst any) {
	t.Helper()
	require.Nil(t, r.Error, "unexpected error response")
	require.NoError(t, json.Unmarshal(r.Data, dst))
}

type in = map[string]any

func signUp(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	res := call(t, h, "nuevoUsuario", "", in{"input": in{
		"nombre": "Ana", "apellido": "Lopez", "email": email, "password": "secreto1",
	}})
	require.Equal(t, http.StatusOK, res.Status)

	res = call(t, h, "autenticarUsuario", "", in{"input": in{"email": email, "password": "secreto1"}})
	require.Equal(t, http.StatusOK, res.Status)
	var tok tokenDTO
	res.decode(t, &tok)
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func TestHealth(t *testing.T) {
	h := newRouter(t, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestSalesFlow(t *testing.T) {
	h := newRouter(t, Options{})
	token := signUp(t, h, "ana@example.com")

	res := call(t, h, "obtenerUsuario", "", in{"token": token})
	var me userDTO
	res.decode(t, &me)
	assert.Equal(t, "ana@example.com", me.Email)
	assert.Equal(t, "Ana", me.Nombre)

	res = call(t, h, "nuevoProducto", token, in{"input": in{"nombre": "Laptop Pro", "precio": 1000, "existencia": 5}})
	var laptop productDTO
	res.decode(t, &laptop)

	res = call(t, h, "nuevoCliente", token, in{"input": in{
		"nombre": "Maria", "apellido": "Perez", "empresa": "Acme", "email": "maria@acme.io",
	}})
	var cli clientDTO
	res.decode(t, &cli)
	assert.Equal(t, me.ID, cli.Vendedor)

	res = call(t, h, "nuevoPedido", token, in{"input": in{
		"cliente": cli.ID,
		"pedido":  []in{{"id": laptop.ID, "cantidad": 3, "nombre": "Laptop Pro", "precio": 1000}},
	}})
	require.Equal(t, http.StatusOK, res.Status)
	var placed struct {
		ID     string  `json:"id"`
		Total  float64 `json:"total"`
		Estado string  `json:"estado"`
	}
	res.decode(t, &placed)
	assert.Equal(t, "PENDING", placed.Estado)
	assert.InDelta(t, 3000, placed.Total, 1e-9)

	res = call(t, h, "obtenerProducto", "", in{"id": laptop.ID})
	var after struct {
		Existencia int `json:"existencia"`
	}
	res.decode(t, &after)
	assert.Equal(t, 2, after.Existencia)

	res = call(t, h, "nuevoPedido", token, in{"input": in{
		"cliente": cli.ID,
		"pedido":  []in{{"id": laptop.ID, "cantidad": 3}},
	}})
	assert.Equal(t, http.StatusConflict, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", res.Error.Code)
	assert.Contains(t, res.Error.Message, "Laptop Pro")

	res = call(t, h, "obtenerPedidosEstado", token, in{"estado": "pendiente"})
	var pending []json.RawMessage
	res.decode(t, &pending)
	assert.Len(t, pending, 1)

	res = call(t, h, "actualizarPedido", token, in{"id": placed.ID, "input": in{"estado": "COMPLETADO"}})
	require.Equal(t, http.StatusOK, res.Status)

	res = call(t, h, "mejoresClientes", "", nil)
	var top []struct {
		Total   float64    `json:"total"`
		Cliente *clientDTO `json:"cliente"`
	}
	res.decode(t, &top)
	require.Len(t, top, 1)
	assert.InDelta(t, 3000, top[0].Total, 1e-9)
	require.NotNil(t, top[0].Cliente)
	assert.Equal(t, "Acme", top[0].Cliente.Empresa)

	res = call(t, h, "mejoresVendedor", "", nil)
	var sellers []struct {
		Vendedor *userDTO `json:"vendedor"`
	}
	res.decode(t, &sellers)
	require.Len(t, sellers, 1)
	assert.Equal(t, "ana@example.com", sellers[0].Vendedor.Email)

	res = call(t, h, "buscarProducto", "", in{"texto": "lap"})
	var hits []productDTO
	res.decode(t, &hits)
	require.Len(t, hits, 1)
	assert.Equal(t, laptop.ID, hits[0].ID)

	var msg string
	call(t, h, "eliminarPedido", token, in{"id": placed.ID}).decode(t, &msg)
	assert.Equal(t, "Pedido Eliminado", msg)
	call(t, h, "eliminarCliente", token, in{"id": cli.ID}).decode(t, &msg)
	assert.Equal(t, "Cliente Eliminado", msg)
	call(t, h, "eliminarProducto", "", in{"id": laptop.ID}).decode(t, &msg)
	assert.Equal(t, "Producto Eliminado", msg)

	res = call(t, h, "obtenerProducto", "", in{"id": laptop.ID})
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "NOT_FOUND", res.Error.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	h := newRouter(t, Options{})
	ana := signUp(t, h, "ana@example.com")
	bo := signUp(t, h, "bo@example.com")

	res := call(t, h, "nuevoCliente", ana, in{"input": in{
		"nombre": "Maria", "apellido": "Perez", "empresa": "Acme", "email": "maria@acme.io",
	}})
	var cli clientDTO
	res.decode(t, &cli)

	cases := []struct {
		name   string
		op     string
		token  string
		args   any
		status int
		code   string
	}{
		{"other seller's client", "obtenerCliente", bo, in{"id": cli.ID}, http.StatusForbidden, "FORBIDDEN"},
		{"bad token", "obtenerClientesVendedor", "garbage", nil, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"bad token on order", "obtenerPedido", "garbage", in{"id": "o1"}, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"anonymous client create", "nuevoCliente", "", in{"input": in{"nombre": "X"}}, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"duplicate sign-up", "nuevoUsuario", "", in{"input": in{
			"nombre": "Ana", "apellido": "Lopez", "email": "ANA@example.com", "password": "otra-clave",
		}}, http.StatusConflict, "ALREADY_EXISTS"},
		{"wrong password", "autenticarUsuario", "", in{"input": in{"email": "ana@example.com", "password": "nope"}}, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"missing id", "obtenerProducto", "", in{}, http.StatusBadRequest, "VALIDATION"},
		{"unknown status", "obtenerPedidosEstado", ana, in{"estado": "ENVIADO"}, http.StatusBadRequest, "VALIDATION"},
		{"unknown argument", "obtenerProductos", "", in{"pagina": 2}, http.StatusBadRequest, "VALIDATION"},
		{"missing client", "obtenerCliente", ana, in{"id": "ghost"}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown operation", "borrarTodo", "", nil, http.StatusNotFound, "UNKNOWN_OPERATION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := call(t, h, tc.op, tc.token, tc.args)
			assert.Equal(t, tc.status, res.Status)
			require.NotNil(t, res.Error)
			assert.Equal(t, tc.code, res.Error.Code)
		})
	}
}

func TestStaleTokenOnlyBlocksScopedOperations(t *testing.T) {
	h := newRouter(t, Options{})
	signUp(t, h, "ana@example.com")
	const stale = "expired.or.garbage"

	res := call(t, h, "autenticarUsuario", stale, in{"input": in{"email": "ana@example.com", "password": "secreto1"}})
	require.Equal(t, http.StatusOK, res.Status)
	var tok tokenDTO
	res.decode(t, &tok)
	assert.NotEmpty(t, tok.Token)

	res = call(t, h, "nuevoUsuario", stale, in{"input": in{
		"nombre": "Bo", "apellido": "Diaz", "email": "bo@example.com", "password": "secreto2",
	}})
	assert.Equal(t, http.StatusOK, res.Status)

	res = call(t, h, "obtenerUsuario", stale, in{"token": tok.Token})
	assert.Equal(t, http.StatusOK, res.Status)

	res = call(t, h, "obtenerProductos", stale, nil)
	assert.Equal(t, http.StatusOK, res.Status)

	res = call(t, h, "obtenerPedidosVendedor", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, "INVALID_TOKEN", res.Error.Code)
	assert.Equal(t, "invalid token", res.Error.Message)
}

func TestInvalidTokenDetailIsNotExposed(t *testing.T) {
	h := newRouter(t, Options{})

	res := call(t, h, "obtenerUsuario", "", in{"token": "\x1a.garbage.token"})
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, "INVALID_TOKEN", res.Error.Code)
	assert.Equal(t, "invalid token", res.Error.Message)

	res = call(t, h, "nuevoCliente", "not-a-jwt", in{"input": in{"nombre": "X"}})
	require.NotNil(t, res.Error)
	assert.Equal(t, "invalid token", res.Error.Message)
	assert.NotContains(t, res.Error.Message, "malformed")
}

func TestMalformedBody(t *testing.T) {
	h := newRouter(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/obtenerProducto", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"VALIDATION"`)
}

func TestAuthOperationsAreRateLimited(t *testing.T) {
	h := newRouter(t, Options{AuthRateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}})
	login := in{"input": in{"email": "nobody@example.com", "password": "x"}}

	first := call(t, h, "autenticarUsuario", "", login)
	assert.Equal(t, http.StatusNotFound, first.Status)

	second := call(t, h, "autenticarUsuario", "", login)
	assert.Equal(t, http.StatusTooManyRequests, second.Status)
	assert.Equal(t, "RATE_LIMITED", second.Error.Code)
	assert.NotEmpty(t, second.Header.Get("Retry-After"))

	other := call(t, h, "obtenerProductos", "", nil)
	assert.Equal(t, http.StatusOK, other.Status)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newRouter(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/obtenerProductos", http.NoBody)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New("minishop", "", reg))
	tel := telemetry.New(nil, nil, counters, histograms)
	h := NewHandler(newServices(t, tel), tel, Options{
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}).Router()

	call(t, h, "obtenerProductos", "", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `minishop_http_requests_total{method="POST",route="/api/obtenerProductos",status="200"} 1`)
	assert.Contains(t, body, `minishop_usecase_requests_total{outcome="success",use_case="product.list"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	h := newRouter(t, Options{CORSAllowedOrigins: []string{"https://app.example"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/obtenerProductos", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
