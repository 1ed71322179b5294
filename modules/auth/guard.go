package auth

import (
	"context"
	"log"
)

// VendorGuard decides whether an authenticated principal may act on
// vendor-scoped resources. It assumes token verification already
// happened upstream; it only answers the ownership question.
type VendorGuard struct {
	vendors *VendorRepository
}

// NewVendorGuard creates a VendorGuard over the vendor repository.
func NewVendorGuard(vendors *VendorRepository) *VendorGuard {
	return &VendorGuard{vendors: vendors}
}

// CanActivate reports whether a vendor record exists for the given
// principal id, either directly or via the user back-reference. It
// fails closed: a missing id or a store error denies the request.
func (g *VendorGuard) CanActivate(_ context.Context, principalID string) bool {
	if principalID == "" {
		return false
	}

	exists, err := g.vendors.ExistsForPrincipal(principalID)
	if err != nil {
		log.Printf("[auth] vendor guard lookup failed: %v", err)
		return false
	}
	return exists
}
