package sale

import (
	"sync"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

// Registry holds the open carts of a running terminal, keyed by cart id.
// Carts live in memory only; a crash loses the cart but never a completed
// sale, which is persisted before the cart resets.
type Registry struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

// NewRegistry creates an empty cart registry.
func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart)}
}

// Open creates and registers a new cart for the tenant.
func (r *Registry) Open(tenantID string) *Cart {
	cart := NewCart(tenantID)
	r.mu.Lock()
	r.carts[cart.ID] = cart
	r.mu.Unlock()
	return cart
}

// Get returns the cart with the given id, scoped to the tenant that
// opened it.
func (r *Registry) Get(cartID, tenantID string) (*Cart, error) {
	r.mu.RLock()
	cart, ok := r.carts[cartID]
	r.mu.RUnlock()
	if !ok || cart.TenantID != tenantID {
		return nil, apperr.Newf(apperr.KindValidation, "cart %s not found", cartID)
	}
	return cart, nil
}

// Close removes a cart from the registry.
func (r *Registry) Close(cartID, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[cartID]
	if !ok || cart.TenantID != tenantID {
		return apperr.Newf(apperr.KindValidation, "cart %s not found", cartID)
	}
	delete(r.carts, cartID)
	return nil
}
