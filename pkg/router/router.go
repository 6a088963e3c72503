package router

import (
	"github.com/samber/lo"

	"github.com/aura-edu/aura/pkg/config"
	"github.com/aura-edu/aura/pkg/models"
)

// Router resolves the model identifier to use for an interaction type.
type Router struct {
	fallback string
	routes   map[models.InteractionType]string
}

// New creates a Router from the given configuration. Routes with an empty
// model are ignored; later routes for the same interaction win.
func New(cfg *config.Config) *Router {
	valid := lo.Filter(cfg.Router.Routes, func(r config.RouteConfig, _ int) bool {
		return r.Model != ""
	})
	return &Router{
		fallback: cfg.Gemini.Model,
		routes: lo.SliceToMap(valid, func(r config.RouteConfig) (models.InteractionType, string) {
			return models.InteractionType(r.Interaction), r.Model
		}),
	}
}

// Resolve returns the model for interaction. An empty interaction is
// treated as a conversation; unrouted interactions use the default model.
func (r *Router) Resolve(interaction models.InteractionType) string {
	if interaction == "" {
		interaction = models.InteractionConversation
	}
	if model, ok := r.routes[interaction]; ok {
		return model
	}
	return r.fallback
}

// Models lists every distinct model the router can return.
func (r *Router) Models() []string {
	return lo.Uniq(append([]string{r.fallback}, lo.Values(r.routes)...))
}
