package domain

// Reference entities are owned by the peripheral CRUD modules. The trip core
// only needs to know that they exist and, where they have one, that their
// status is active.

// Vehicle is a truck or van of the fleet.
type Vehicle struct {
	ID     int64
	Plate  string
	Active bool
}

// Driver is a person allowed to drive fleet vehicles.
type Driver struct {
	ID       int64
	FullName string
	Active   bool
}

// Client is the party paying for a trip.
type Client struct {
	ID     int64
	Name   string
	Active bool
}

// Material is the cargo transported on a trip. Materials have no status.
type Material struct {
	ID   int64
	Name string
}

// ActiveTotal pairs an active count with a total count.
type ActiveTotal struct {
	Active int64 `json:"activos"`
	Total  int64 `json:"total"`
}

// ReferenceCounts is the dashboard view of the reference data.
type ReferenceCounts struct {
	Vehicles  ActiveTotal `json:"vehiculos"`
	Drivers   ActiveTotal `json:"choferes"`
	Clients   ActiveTotal `json:"clientes"`
	Materials int64       `json:"materiales"`
}

// Dashboard is the landing summary of the back office.
type Dashboard struct {
	References ReferenceCounts   `json:"resumen"`
	Month      MonthlyStatistics `json:"mesActual"`
}
