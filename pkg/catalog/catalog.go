package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cuemby/tableside/pkg/types"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Catalog is the ordered list of menu categories offered when adding dishes
type Catalog struct {
	Categories []types.Category `yaml:"categories"`
}

// Default returns the built-in menu
func Default() *Catalog {
	return &Catalog{Categories: []types.Category{
		{ID: 1, Name: "Món chính", Dishes: []types.Dish{
			{ID: 1, Name: "Phở Bò", Price: "80000"},
			{ID: 2, Name: "Bún Bò", Price: "70000"},
			{ID: 3, Name: "Cơm Gà", Price: "60000"},
			{ID: 4, Name: "Cơm Tấm", Price: "55000"},
		}},
		{ID: 2, Name: "Món phụ", Dishes: []types.Dish{
			{ID: 5, Name: "Bánh Mì", Price: "25000"},
			{ID: 6, Name: "Chả Giò", Price: "30000"},
			{ID: 7, Name: "Nem Nướng", Price: "35000"},
		}},
		{ID: 3, Name: "Đồ uống", Dishes: []types.Dish{
			{ID: 8, Name: "Nước ngọt", Price: "15000"},
			{ID: 9, Name: "Cà phê", Price: "20000"},
			{ID: 10, Name: "Trà đá", Price: "10000"},
			{ID: 11, Name: "Nước cam", Price: "25000"},
		}},
		{ID: 4, Name: "Canh/Súp", Dishes: []types.Dish{
			{ID: 12, Name: "Canh chua", Price: "50000"},
			{ID: 13, Name: "Súp cua", Price: "60000"},
		}},
	}}
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Source lists categories and dishes from the upstream API
type Source interface {
	GetCategories(ctx context.Context) ([]types.Category, error)
	GetMenus(ctx context.Context, categoryID int) ([]types.Dish, error)
}

// Fetch builds a catalog from the upstream menu endpoints
func Fetch(ctx context.Context, src Source) (*Catalog, error) {
	categories, err := src.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	c := &Catalog{Categories: make([]types.Category, 0, len(categories))}
	for _, cat := range categories {
		dishes, err := src.GetMenus(ctx, cat.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list dishes for category %d: %w", cat.ID, err)
		}
		cat.Dishes = dishes
		c.Categories = append(c.Categories, cat)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that dish ids are unique across categories
func (c *Catalog) Validate() error {
	seen := make(map[int]string)
	for _, cat := range c.Categories {
		for _, d := range cat.Dishes {
			if prev, ok := seen[d.ID]; ok {
				return fmt.Errorf("dish id %d used by both %q and %q", d.ID, prev, d.Name)
			}
			seen[d.ID] = d.Name
		}
	}
	return nil
}

// Find looks up a dish by id
func (c *Catalog) Find(dishID int) (types.Dish, bool) {
	for _, cat := range c.Categories {
		for _, d := range cat.Dishes {
			if d.ID == dishID {
				return d, true
			}
		}
	}
	return types.Dish{}, false
}

// Select turns a dish-id to quantity map into selections in catalog order.
// Non-positive quantities and unknown dish ids are skipped.
func (c *Catalog) Select(quantities map[int]int) []types.DishSelection {
	var selections []types.DishSelection
	for _, cat := range c.Categories {
		for _, d := range cat.Dishes {
			qty := quantities[d.ID]
			if qty <= 0 {
				continue
			}
			selections = append(selections, types.DishSelection{
				ID:       d.ID,
				Name:     d.Name,
				Price:    d.Price,
				Quantity: qty,
			})
		}
	}
	return selections
}

// Unknown returns the ids in quantities that the catalog does not carry
func (c *Catalog) Unknown(quantities map[int]int) []int {
	var ids []int
	for id := range quantities {
		if _, ok := c.Find(id); !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindByName looks up a dish by name. Names are compared in Unicode NFC form
// and case-insensitively, so precomposed and decomposed Vietnamese input match.
func (c *Catalog) FindByName(name string) (types.Dish, bool) {
	want := norm.NFC.String(strings.TrimSpace(name))
	for _, cat := range c.Categories {
		for _, d := range cat.Dishes {
			if strings.EqualFold(norm.NFC.String(d.Name), want) {
				return d, true
			}
		}
	}
	return types.Dish{}, false
}
