package catalog

import "sort"

// AddOnService is an optional extra offered by a service type.
type AddOnService struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Fee  float64 `json:"fee"`
}

// ServiceType is immutable reference data describing a bookable emergency
// service. Loaded at process start; never mutated by request handling.
type ServiceType struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	BaseFee     float64        `json:"base_fee"`
	Currency    string         `json:"currency"`
	AddOns      []AddOnService `json:"add_ons"`
}

// AddOn looks up an add-on offered by this service type.
func (s *ServiceType) AddOn(id string) (AddOnService, bool) {
	for _, a := range s.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOnService{}, false
}

// Catalog is a read-only registry of service types keyed by id.
type Catalog struct {
	byID  map[string]ServiceType
	order []string
}

// New builds a catalog from the given service types. Listing order is stable,
// sorted by id.
func New(types ...ServiceType) *Catalog {
	c := &Catalog{byID: make(map[string]ServiceType, len(types))}
	for _, st := range types {
		if _, dup := c.byID[st.ID]; dup {
			continue
		}
		c.byID[st.ID] = st
		c.order = append(c.order, st.ID)
	}
	sort.Strings(c.order)
	return c
}

// Get returns the service type with the given id.
func (c *Catalog) Get(id string) (*ServiceType, bool) {
	st, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	// Copy so callers cannot mutate the registry through the pointer.
	cp := st
	cp.AddOns = append([]AddOnService(nil), st.AddOns...)
	return &cp, true
}

// List returns all service types ordered by id.
func (c *Catalog) List() []ServiceType {
	out := make([]ServiceType, 0, len(c.order))
	for _, id := range c.order {
		st := c.byID[id]
		st.AddOns = append([]AddOnService(nil), st.AddOns...)
		out = append(out, st)
	}
	return out
}

// Default returns the built-in municipal emergency service catalog, priced in
// the given currency.
func Default(currency string) *Catalog {
	return New(
		ServiceType{
			ID:          "ambulance",
			Name:        "Ambulance Dispatch",
			Description: "Emergency medical transport with paramedic crew",
			BaseFee:     150.00,
			Currency:    currency,
			AddOns: []AddOnService{
				{ID: "advanced-life-support", Name: "Advanced Life Support", Fee: 75.00},
				{ID: "medical-escort", Name: "Medical Escort", Fee: 25.00},
				{ID: "oxygen-supply", Name: "Oxygen Supply", Fee: 15.00},
			},
		},
		ServiceType{
			ID:          "fire-response",
			Name:        "Fire Response Unit",
			Description: "Fire suppression and rescue dispatch",
			BaseFee:     200.00,
			Currency:    currency,
			AddOns: []AddOnService{
				{ID: "hazmat-containment", Name: "Hazmat Containment", Fee: 120.00},
				{ID: "aerial-ladder", Name: "Aerial Ladder Unit", Fee: 80.00},
			},
		},
		ServiceType{
			ID:          "police-response",
			Name:        "Police Response Unit",
			Description: "Law enforcement dispatch for urgent incidents",
			BaseFee:     100.00,
			Currency:    currency,
			AddOns: []AddOnService{
				{ID: "k9-unit", Name: "K9 Unit", Fee: 50.00},
				{ID: "traffic-control", Name: "Traffic Control", Fee: 30.00},
			},
		},
		ServiceType{
			ID:          "hazmat",
			Name:        "Hazardous Materials Response",
			Description: "Containment and decontamination for chemical incidents",
			BaseFee:     300.00,
			Currency:    currency,
			AddOns: []AddOnService{
				{ID: "decontamination-unit", Name: "Decontamination Unit", Fee: 90.00},
				{ID: "air-quality-monitoring", Name: "Air Quality Monitoring", Fee: 40.00},
			},
		},
		ServiceType{
			ID:          "rescue",
			Name:        "Search and Rescue",
			Description: "Technical rescue for entrapment and wilderness incidents",
			BaseFee:     250.00,
			Currency:    currency,
			AddOns: []AddOnService{
				{ID: "swift-water-team", Name: "Swift Water Team", Fee: 150.00},
				{ID: "rope-rescue", Name: "Rope Rescue Team", Fee: 100.00},
			},
		},
	)
}
