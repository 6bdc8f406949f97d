package types

import "strings"

// DeliveryDetails is the buyer-supplied contact and drop-off info captured
// at checkout. Stored as jsonb on the order.
type DeliveryDetails struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	Notes   *string `json:"notes,omitempty"`
}

// Validate reports the missing required fields, if any.
func (d DeliveryDetails) Validate() []string {
	missing := []string{}
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(d.Address) == "" {
		missing = append(missing, "address")
	}
	return missing
}
