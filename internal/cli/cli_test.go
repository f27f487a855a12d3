package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/application/auth"
	"github.com/Zhima-Mochi/minishop-sales/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(driver, dbPath string) *config.Config {
	return &config.Config{
		ServiceName:        "minishop-sales-test",
		StoreDriver:        driver,
		DBPath:             dbPath,
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		BcryptCost:         bcrypt.MinCost,
		ShutdownTimeout:    time.Second,
		CORSAllowedOrigins: []string{"*"},
		AuthRateLimitRPS:   100,
		AuthRateLimitBurst: 100,
		LowStockThreshold:  1,
	}
}

func post(t *testing.T, h http.Handler, op, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/"+op, strings.NewReader(body)))
	return rec
}

func TestBuildWiresEveryDriver(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(driver, filepath.Join(t.TempDir(), "sales.sqlite"))
			app, err := Build(ctx, cfg, zap.NewNop(), prometheus.NewRegistry())
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, app.Close()) })

			rec := post(t, app.Handler, "nuevoUsuario",
				`{"input":{"nombre":"Ana","apellido":"Lopez","email":"ana@example.com","password":"secreto1"}}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			token, err := app.Auth.IssueFor(ctx, "ana@example.com", time.Minute)
			require.NoError(t, err)
			p, err := app.Auth.Resolve(token)
			require.NoError(t, err)
			assert.Equal(t, "ana@example.com", p.Email)

			metrics := httptest.NewRecorder()
			app.Handler.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			assert.Contains(t, metrics.Body.String(), "minishop_usecase_requests_total")
		})
	}
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	_, err := Build(context.Background(), testConfig("mongo", ""), zap.NewNop(), prometheus.NewRegistry())
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestReadPasswordFromPipe(t *testing.T) {
	pw, err := readPassword(strings.NewReader("hunter22\r\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "hunter22", pw)

	_, err = readPassword(strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader("secreto1\n"))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"hash-password", "--env-file", filepath.Join(t.TempDir(), "none.env")})

	require.NoError(t, root.ExecuteContext(context.Background()))
	hash := strings.TrimSpace(out.String())
	assert.True(t, auth.NewBcryptHasher(4).Verify("secreto1", hash))
}
