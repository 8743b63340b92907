// Package ratelimit limita solicitudes por cliente (IP + alcance).
package ratelimit

import "context"

// Limiter decide si una clave puede hacer otra solicitud.
// Las implementaciones fallan abiertas ante errores de infraestructura.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}
