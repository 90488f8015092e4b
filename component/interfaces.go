package component

import "context"

// HealthStatus is the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a named resource with a start/stop lifecycle, such as a
// client bound to one upstream service.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start prepares the component for use.
	Start(ctx context.Context) error

	// Stop releases the component's resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description summarises what a component is and how it is configured.
type Description struct {
	// Name is the display name. Empty means the component's Name().
	Name string
	// Type categorises the component, e.g. "http-client".
	Type string
	// Details is a one-line configuration summary.
	Details string
}

// Describable is optionally implemented by components that can summarise
// themselves.
type Describable interface {
	Describe() Description
}
