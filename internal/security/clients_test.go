package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gderossilive/devShopDemo/configs"
)

func TestClientRegistry_Authenticate(t *testing.T) {
	r := NewClientRegistry([]configs.ClientConfig{
		{ID: "web", Secret: "web-secret", Perms: []string{PermCatalogRead, PermPurchasesWrite}, Enabled: true},
		{ID: "old", Secret: "old-secret", Perms: []string{PermCatalogRead}, Enabled: false},
		{ID: "", Secret: "ignored", Enabled: true},
	})
	assert.Equal(t, 2, r.Len())

	cl, ok := r.Authenticate("web", "web-secret")
	assert.True(t, ok)
	assert.True(t, cl.Has(PermPurchasesWrite))
	assert.False(t, cl.Has(PermOrdersRead))

	_, ok = r.Authenticate("web", "wrong")
	assert.False(t, ok)
	_, ok = r.Authenticate("old", "old-secret")
	assert.False(t, ok, "disabled client")
	_, ok = r.Authenticate("nobody", "x")
	assert.False(t, ok)
}
