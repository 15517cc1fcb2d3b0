package model

import "time"

type Cart struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Items []CartItem `db:"-" json:"items"`
}

type CartItem struct {
	ID               string     `db:"id" json:"id"`
	CartID           string     `db:"cart_id" json:"cart_id"`
	ProductID        string     `db:"product_id" json:"product_id"`
	Quantity         int        `db:"quantity" json:"quantity"`
	SelectedVariants Attributes `db:"selected_variants" json:"selected_variants"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	Product *Product `db:"-" json:"product,omitempty"`
}
