package rebrickable

// Set is a set as returned by the Rebrickable API.
type Set struct {
	SetNumber string `json:"set_num"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	ThemeID   int    `json:"theme_id"`
	NumParts  int    `json:"num_parts"`
	ImageURL  string `json:"set_img_url"`
	URL       string `json:"set_url"`
}

// Theme is a theme as returned by the Rebrickable API.
type Theme struct {
	ID       int    `json:"id"`
	ParentID int    `json:"parent_id"`
	Name     string `json:"name"`
}

// Part is the part definition embedded in an inventory line.
type Part struct {
	PartNumber string `json:"part_num"`
	Name       string `json:"name"`
	CategoryID int    `json:"part_cat_id"`
	ImageURL   string `json:"part_img_url"`
}

// Color is the color embedded in an inventory line.
type Color struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	RGB     string `json:"rgb"`
	IsTrans bool   `json:"is_trans"`
}

// InventoryPart is one line of a set or minifig inventory.
type InventoryPart struct {
	ID        int    `json:"id"`
	Part      Part   `json:"part"`
	Color     Color  `json:"color"`
	Quantity  int    `json:"quantity"`
	IsSpare   bool   `json:"is_spare"`
	ElementID string `json:"element_id"`
}

// SetMinifig is a minifigure contained in a set.
type SetMinifig struct {
	ID       int    `json:"id"`
	Number   string `json:"set_num"`
	Name     string `json:"set_name"`
	Quantity int    `json:"quantity"`
	ImageURL string `json:"set_img_url"`
}

// page is the envelope of every list endpoint.
type page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}
