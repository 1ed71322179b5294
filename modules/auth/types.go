package auth

// RegisterUserInput carries the fields needed to create a shopper
// account. Role is an open string; empty means the default user role.
type RegisterUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

// RegisterVendorInput carries the fields needed to create a seller
// account. UserID optionally links back to an existing shopper account.
type RegisterVendorInput struct {
	CompanyName   string
	BusinessEmail string
	Password      string
	Address       string
	Website       string
	UserID        *string
}
