package parse

import "time"

// CaseOrderFields holds what could be read from a judicial case-order.
// Every field is independently optional; nil means "not found".
type CaseOrderFields struct {
	CaseNumber   *string    `json:"case_number,omitempty"`
	OwnerRUT     *string    `json:"owner_rut,omitempty"`
	OwnerName    *string    `json:"owner_name,omitempty"`
	Addresses    []string   `json:"addresses,omitempty"`
	LegalContext *string    `json:"legal_context,omitempty"`
	OrderDate    *time.Time `json:"order_date,omitempty"`
}

// CertificateFields holds what could be read from a vehicle registration
// certificate. Every field is independently optional.
type CertificateFields struct {
	Plate       *string `json:"plate,omitempty"`
	Brand       *string `json:"brand,omitempty"`
	Model       *string `json:"model,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Color       *string `json:"color,omitempty"`
	VIN         *string `json:"vin,omitempty"`
	VehicleType *string `json:"vehicle_type,omitempty"`
	FuelType    *string `json:"fuel_type,omitempty"`
}

func strPtr(s string) *string {
	return &s
}
