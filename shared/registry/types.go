// shared/registry/types.go
package registry

// ServiceInfo describes a registered bot instance. It is stored as JSON in the
// services:<type> hash and read by the assignment manager.
type ServiceInfo struct {
	ServiceID   string            `json:"serviceId"`
	ServiceType string            `json:"serviceType"`
	IP          string            `json:"ip"`
	Port        int               `json:"port"`
	LastSeen    int64             `json:"last_seen"` // unix milliseconds
	Metadata    map[string]string `json:"metadata,omitempty"`
}
