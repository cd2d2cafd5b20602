package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is the raw server response for the serving-reservations list.
// It is also the shape held in the cache under the serving-reservations key.
type Envelope struct {
	Success bool          `json:"success"`
	Data    []Reservation `json:"data"`
}

// Reservation is an open reservation with its tables and ordered menu lines
type Reservation struct {
	ReservationCode string     `json:"reservation_code"`
	Tables          []Table    `json:"tables"`
	Menus           []MenuLine `json:"menus"`
}

// Table is a dining table attached to a reservation
type Table struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MenuLine is a single ordered dish. Pending lines carry IsNew and a synthetic ID.
type MenuLine struct {
	ID       LineID `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    Price  `json:"price"`
	IsNew    bool   `json:"_isNew,omitempty"`
}

// PendingEntry is a locally added order line that the server has not confirmed yet
type PendingEntry struct {
	ID       LineID `json:"id"`
	DishID   int    `json:"dishId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    Price  `json:"price"`
	IsNew    bool   `json:"_isNew"`
}

// MenuLine converts the entry into the line shape used inside an Envelope
func (e PendingEntry) MenuLine() MenuLine {
	return MenuLine{
		ID:       e.ID,
		Name:     e.Name,
		Quantity: e.Quantity,
		Price:    e.Price,
		IsNew:    e.IsNew,
	}
}

// Journal maps a reservation code to its pending entries in append order.
// A missing key means the reservation has no pending writes.
type Journal map[string][]PendingEntry

// DishSelection is a catalog dish together with the quantity the user picked
type DishSelection struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Price    Price  `json:"price" yaml:"price"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// ReservationView is the per-reservation row consumed by presentation
type ReservationView struct {
	ID              string      `json:"id"`
	ReservationCode string      `json:"reservation_code"`
	Tables          []Table     `json:"tables"`
	Orders          []OrderView `json:"orders"`
}

// OrderView is a projected menu line
type OrderView struct {
	ID        LineID `json:"id"`
	Dish      string `json:"dish"`
	Quantity  int    `json:"quantity"`
	Price     Price  `json:"price"`
	Confirmed bool   `json:"confirmed"`
}

// LineID identifies a menu line. Server-issued ids are integers, synthetic ids
// are free-form strings; both are carried as text.
type LineID string

// IsSynthetic reports whether the id was generated locally
func (id LineID) IsSynthetic() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err != nil || strconv.FormatInt(n, 10) != string(id)
}

// MarshalJSON writes integer ids as JSON numbers and everything else as strings
func (id LineID) MarshalJSON() ([]byte, error) {
	if !id.IsSynthetic() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts both JSON numbers and strings
func (id *LineID) UnmarshalJSON(data []byte) error {
	s, err := numberOrString(data)
	if err != nil {
		return fmt.Errorf("invalid line id: %w", err)
	}
	*id = LineID(s)
	return nil
}

// Price is a decimal amount kept as numeric text so it never passes through a float
type Price string

// Float64 returns the price as a float for display purposes
func (p Price) Float64() float64 {
	f, err := strconv.ParseFloat(string(p), 64)
	if err != nil {
		return 0
	}
	return f
}

// MarshalJSON always writes the price as a JSON string
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON accepts both JSON numbers and strings without reformatting digits
func (p *Price) UnmarshalJSON(data []byte) error {
	s, err := numberOrString(data)
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	*p = Price(s)
	return nil
}

func numberOrString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Category groups catalog dishes
type Category struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Dishes []Dish `json:"dishes,omitempty" yaml:"dishes"`
}

// Dish is an orderable catalog item
type Dish struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Price      Price  `json:"price" yaml:"price"`
	CategoryID int    `json:"category_id,omitempty" yaml:"category_id,omitempty"`
}
