package integration

import (
	"errors"
	"fmt"

	"github.com/commandx/backend/internal/domain/shared"
)

var (
	ErrNotConnected       = errors.New("integration: QuickBooks not connected")
	ErrRequestFailed      = errors.New("integration: QuickBooks request failed")
	ErrInvalidResponse    = errors.New("integration: invalid QuickBooks response")
	ErrUnsupportedEntity  = errors.New("integration: entity type cannot be synced")
	ErrMappingNotFound    = errors.New("integration: mapping not found")
	ErrMappingInvalidData = errors.New("integration: invalid mapping")
)

// NewVendorNotMappedError is returned when a document references a vendor
// that was never pushed to QuickBooks.
func NewVendorNotMappedError(vendorName string) *shared.DomainError {
	return shared.NewDomainError("VENDOR_NOT_MAPPED", fmt.Sprintf(
		"Vendor '%s' is not mapped to QuickBooks. Please sync this vendor first from the Vendor Management page.", vendorName))
}

// NewCustomerNotMappedError is returned when a document references a
// customer that was never pushed to QuickBooks.
func NewCustomerNotMappedError(customerName string) *shared.DomainError {
	return shared.NewDomainError("CUSTOMER_NOT_MAPPED", fmt.Sprintf(
		"Customer '%s' is not mapped to QuickBooks. Please sync this customer first from the Customer Management page.", customerName))
}
