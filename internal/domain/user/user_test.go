package user

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesEmail(t *testing.T) {
	u, err := New("u1", " Ana ", "Lopez", "  Ana@Example.COM ", "$2a$10$hash", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "Ana", u.GivenName)

	p := u.Principal()
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "Lopez", p.FamilyName)
}

func TestNewRequiresFields(t *testing.T) {
	_, err := New("u1", "Ana", "Lopez", "", "hash", time.Now())
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = New("u1", "", "Lopez", "a@b.c", "hash", time.Now())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
