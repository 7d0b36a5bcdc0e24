// Package session persists the single signed-in shop record.
package session

// Record is the currently authenticated identity. Its presence in the store
// means "signed in".
type Record struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	ShopName   string `json:"shopname"`
	VendorName string `json:"vendorname"`
	ShopType   string `json:"type_of_shop"`
	Location   string `json:"location"`
}

// Profile holds the fields a shop supplies at signup. The password is
// accepted for form parity but never persisted.
type Profile struct {
	Email      string
	Password   string
	ShopName   string
	VendorName string
	ShopType   string
	Location   string
}
