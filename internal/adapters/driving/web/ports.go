package web

import "github.com/custodia-labs/specforge/internal/core/ports/driving"

// Ports holds the driving ports the server exposes.
type Ports struct {
	Sessions     driving.SessionService
	Generation   driving.GenerationOrchestrator
	Verification driving.VerificationService
	Proxy        driving.ProxyService
	Catalog      driving.CatalogService
}
