package memstore

import (
	"fmt"
	"io"
	"os"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML fixture loaded into an empty store:
//
//	users:
//	  - {id: ..., username: alice, email: alice@example.com, role: USER}
//	categories:
//	  - {id: ..., name: Books}
//	products:
//	  - {id: ..., category_id: ..., name: Go in Action, price: "25.00", quantity: 10}
type Seed struct {
	Users []struct {
		ID       string `yaml:"id"`
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
	Categories []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"categories"`
	Products []struct {
		ID          string `yaml:"id"`
		CategoryID  string `yaml:"category_id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Price       string `yaml:"price"`
		Quantity    int    `yaml:"quantity"`
	} `yaml:"products"`
}

func (s *Store) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("memstore: failed to open seed file: %w", err)
	}
	defer f.Close()
	return s.LoadSeed(f)
}

func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("memstore: invalid seed: %w", err)
	}

	for _, u := range seed.Users {
		id, err := uuid.FromString(u.ID)
		if err != nil {
			return fmt.Errorf("memstore: user %q: %w", u.Username, err)
		}
		role := user.Role(u.Role)
		if role == "" {
			role = user.RoleUser
		}
		s.AddUser(user.User{ID: id, Username: u.Username, Email: u.Email, Role: role})
	}

	for _, c := range seed.Categories {
		id, err := uuid.FromString(c.ID)
		if err != nil {
			return fmt.Errorf("memstore: category %q: %w", c.Name, err)
		}
		s.AddCategory(catalog.Category{ID: id, Name: c.Name, Description: c.Description})
	}

	for _, p := range seed.Products {
		id, err := uuid.FromString(p.ID)
		if err != nil {
			return fmt.Errorf("memstore: product %q: %w", p.Name, err)
		}
		categoryID, err := uuid.FromString(p.CategoryID)
		if err != nil {
			return fmt.Errorf("memstore: product %q category: %w", p.Name, err)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil || !price.IsPositive() {
			return fmt.Errorf("memstore: product %q has invalid price %q", p.Name, p.Price)
		}
		s.PutProduct(catalog.Product{
			ID:          id,
			CategoryID:  categoryID,
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Quantity:    p.Quantity,
		})
	}

	return nil
}
