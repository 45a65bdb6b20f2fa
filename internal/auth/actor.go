package auth

import (
	"github.com/gin-gonic/gin"

	"classtrack/internal/model"
)

// Actor is the authenticated identity for one request. It is built once by
// the Authenticate middleware from verified claims plus the stored role and
// never mutated afterwards.
type Actor struct {
	ID   string
	Role model.Role
}

const actorKey = "actor"

// SetActor stores the actor on the request context.
func SetActor(c *gin.Context, a Actor) {
	c.Set(actorKey, a)
}

// ActorFrom returns the request's actor, if authentication ran.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}
