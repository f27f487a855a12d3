package client

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDetails() Details {
	return Details{
		GivenName:  "Maria",
		FamilyName: "Perez",
		Company:    "Acme",
		Email:      "Maria@Acme.io",
		Phone:      "555-0101",
	}
}

func TestNewSetsOwner(t *testing.T) {
	c, err := New("c1", "seller-1", validDetails(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "seller-1", c.Owner())
	assert.Equal(t, "maria@acme.io", c.Email)

	_, err = New("c1", "", validDetails(), time.Now())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApplyPatch(t *testing.T) {
	c, err := New("c1", "seller-1", validDetails(), time.Now())
	require.NoError(t, err)

	empty := ""
	assert.ErrorIs(t, c.Apply(Patch{Company: &empty}, time.Now()), apperr.ErrValidation)
	assert.Equal(t, "Acme", c.Company)

	phone := "555-0199"
	require.NoError(t, c.Apply(Patch{Phone: &phone}, time.Now()))
	assert.Equal(t, "555-0199", c.Phone)
	assert.Equal(t, "seller-1", c.OwnerID)
}

func TestNilClientIsOwnedByNobody(t *testing.T) {
	var missing *Client
	assert.Empty(t, missing.Owner())
	assert.ErrorIs(t, access.AssertOwner(missing, access.Principal{ID: "u1"}), apperr.ErrForbidden)
}
