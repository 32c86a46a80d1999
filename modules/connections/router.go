package connections

import (
	"github.com/go-chi/chi/v5"
)

// Router mounts the module on its own router. All operations share one path.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/auth/oauth", connections.Router(module))
func Router(m *Module) chi.Router {
	r := chi.NewRouter()
	r.Handle("/", m.Handle())
	return r
}
