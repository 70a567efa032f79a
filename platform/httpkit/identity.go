// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated agent.
// This abstracts identity extraction from the web framework so handlers can
// read agent information without depending on Gin internals.
type Identity interface {
	// AgentID returns the authenticated agent's ID.
	AgentID() uuid.UUID
	// Role returns the agent's role (ADMIN, SENIOR_AGENT, AGENT).
	Role() string
	// IsAuthenticated returns true if the request carries a valid token.
	IsAuthenticated() bool
}

type identity struct {
	agentID       uuid.UUID
	role          string
	authenticated bool
}

func (i *identity) AgentID() uuid.UUID   { return i.agentID }
func (i *identity) Role() string         { return i.role }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if agent info is not present.
func GetIdentity(c *gin.Context) Identity {
	agentID, agentOK := c.Get(ContextAgentIDKey)
	if !agentOK {
		return &identity{authenticated: false}
	}

	id, ok := agentID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	role, _ := c.Get(ContextRoleKey)
	roleStr, _ := role.(string)

	return &identity{agentID: id, role: roleStr, authenticated: true}
}

// MustGetIdentity extracts the Identity from a Gin context.
// Aborts with 401 Unauthorized and returns nil when unauthenticated.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
