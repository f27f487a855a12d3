package access

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
)

type record string

func (r record) Owner() string { return string(r) }

func TestAssertOwner(t *testing.T) {
	seller := Principal{ID: "u1", Email: "ana@example.com"}

	assert.NoError(t, AssertOwner(record("u1"), seller))
	assert.ErrorIs(t, AssertOwner(record("u2"), seller), apperr.ErrForbidden)
	assert.ErrorIs(t, AssertOwner(record(""), Principal{}), apperr.ErrForbidden)
	assert.ErrorIs(t, AssertOwner(nil, seller), apperr.ErrForbidden)
}

func TestRequirePrincipal(t *testing.T) {
	assert.ErrorIs(t, RequirePrincipal(nil), apperr.ErrUnauthenticated)
	assert.ErrorIs(t, RequirePrincipal(&Principal{}), apperr.ErrUnauthenticated)
	assert.NoError(t, RequirePrincipal(&Principal{ID: "u1"}))
}
