package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/notewall/internal/observability/context"
	organizationdomain "github.com/smallbiznis/notewall/internal/organization/domain"
)

type selectOrganizationRequest struct {
	Name string `json:"name"`
}

func (s *Server) ListOrganizations(c *gin.Context) {
	coord := sessionCoordinator(c)
	if coord == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	snapshot := coord.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"data":                 snapshot.Roster,
		"current_organization": snapshot.CurrentOrganization,
	})
}

func (s *Server) RefreshOrganizations(c *gin.Context) {
	coord := sessionCoordinator(c)
	if coord == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": coord.RefreshRoster(c.Request.Context())})
}

func (s *Server) SelectOrganization(c *gin.Context) {
	coord := sessionCoordinator(c)
	if coord == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req selectOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if !organizationdomain.ValidOrganizationName(req.Name) {
		AbortWithError(c, organizationdomain.ErrInvalidOrganization)
		return
	}

	ctx := obscontext.WithOrganization(c.Request.Context(), req.Name)
	snapshot, err := coord.Select(ctx, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) GetSelection(c *gin.Context) {
	coord := sessionCoordinator(c)
	if coord == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": coord.Snapshot()})
}

func (s *Server) InvalidateOrganization(c *gin.Context) {
	coord := sessionCoordinator(c)
	if coord == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	name := c.Param("name")
	if !organizationdomain.ValidOrganizationName(name) {
		AbortWithError(c, organizationdomain.ErrInvalidOrganization)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": coord.Invalidate(c.Request.Context(), name)})
}
