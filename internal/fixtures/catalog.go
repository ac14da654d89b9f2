// Package fixtures holds the static records served by the mock API and
// generates the synthetic transaction and analytics payloads.
package fixtures

import (
	"embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
)

//go:embed data/*.yaml
var dataFS embed.FS

// ErrProductNotFound is returned by Catalog.Product for unknown ids.
var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry.
type Product struct {
	ID          int     `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Price       float64 `json:"price" yaml:"price"`
	Description string  `json:"description" yaml:"description"`
	Image       string  `json:"image" yaml:"image"`
	Category    string  `json:"category" yaml:"category"`
	Stock       int     `json:"stock" yaml:"stock"`
	Rating      float64 `json:"rating" yaml:"rating"`
}

// Preferences are per-user toggles.
type Preferences struct {
	Notifications bool `json:"notifications" yaml:"notifications"`
	Newsletter    bool `json:"newsletter" yaml:"newsletter"`
	DarkMode      bool `json:"darkMode" yaml:"darkMode"`
}

// User is a customer profile.
type User struct {
	ID          int         `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Email       string      `json:"email" yaml:"email"`
	Address     string      `json:"address" yaml:"address"`
	Phone       string      `json:"phone" yaml:"phone"`
	MemberSince string      `json:"memberSince" yaml:"memberSince"`
	Orders      []int       `json:"orders" yaml:"orders"`
	Preferences Preferences `json:"preferences" yaml:"preferences"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID int     `json:"productId" yaml:"productId"`
	Quantity  int     `json:"quantity" yaml:"quantity"`
	Price     float64 `json:"price" yaml:"price"`
}

// Order references users and products by id only; nothing checks that
// they exist.
type Order struct {
	ID              int         `json:"id" yaml:"id"`
	UserID          int         `json:"userId" yaml:"userId"`
	Date            string      `json:"date" yaml:"date"`
	Items           []OrderItem `json:"items" yaml:"items"`
	Total           float64     `json:"total" yaml:"total"`
	Status          string      `json:"status" yaml:"status"`
	ShippingAddress string      `json:"shippingAddress" yaml:"shippingAddress"`
	PaymentMethod   string      `json:"paymentMethod" yaml:"paymentMethod"`
}

// ProductList is the body of the product listing.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// Catalog is the read-only fixture set.
type Catalog struct {
	products []Product
	users    []User
	orders   []Order
}

// Load decodes the embedded fixtures.
func Load() (*Catalog, error) {
	c := &Catalog{}
	if err := decode("data/products.yaml", &c.products); err != nil {
		return nil, err
	}
	if err := decode("data/users.yaml", &c.users); err != nil {
		return nil, err
	}
	if err := decode("data/orders.yaml", &c.orders); err != nil {
		return nil, err
	}
	if len(c.users) == 0 {
		return nil, errors.New("fixtures: no users defined")
	}
	return c, nil
}

// MustLoad is Load for program start-up.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func decode(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("fixtures: read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fixtures: decode %s: %w", name, err)
	}
	return nil
}

// Products returns at most limit products and the full count.
func (c *Catalog) Products(limit int) ProductList {
	n := len(c.products)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]Product, n)
	copy(out, c.products)
	return ProductList{Products: out, Total: len(c.products)}
}

// Product looks a product up by its id as it appears in a URL.
func (c *Catalog) Product(id string) (Product, error) {
	for _, p := range c.products {
		if strconv.Itoa(p.ID) == id {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

// Profile returns the signed-in user, which is always the first one.
func (c *Catalog) Profile() User {
	return c.users[0]
}

// Orders returns every order.
func (c *Catalog) Orders() []Order {
	out := make([]Order, len(c.orders))
	copy(out, c.orders)
	return out
}
