package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/app/requests"
	"github.com/gazetteer-geocoder/app/responses"
	"github.com/gazetteer-geocoder/app/services"
	"github.com/gazetteer-geocoder/internal/gazetteer"
)

// AdminController handles curation and operations endpoints.
type AdminController struct {
	adminService *services.AdminService
	logger       *zap.Logger
}

func NewAdminController(as *services.AdminService, logger *zap.Logger) *AdminController {
	return &AdminController{adminService: as, logger: logger}
}

// Reindex handles POST /v1/admin/reindex.
func (ac *AdminController) Reindex(c *gin.Context) {
	version, err := ac.adminService.RebuildIndex(c.Request.Context())
	if err != nil {
		ac.logger.Error("reindex failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("REINDEX_FAILED", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"gazetteer_version": version})
}

// AddSettlement handles POST /v1/admin/settlements.
func (ac *AdminController) AddSettlement(c *gin.Context) {
	var req requests.SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", err.Error()))
		return
	}

	sp := &models.SettlementPoint{
		FeatureID: req.FeatureID,
		Name:      req.Name,
		Aliases:   req.Aliases,
		Lon:       req.Lon,
		Lat:       req.Lat,
		Source:    req.Source,
		Lineage: models.Lineage{
			State:  req.State,
			County: req.County,
			Payam:  req.Payam,
			Boma:   req.Boma,
		},
	}
	if err := ac.adminService.AddSettlement(c.Request.Context(), sp); err != nil {
		if errors.Is(err, services.ErrInvalidSettlement) {
			c.JSON(http.StatusBadRequest, responses.NewError("INVALID_SETTLEMENT", err.Error()))
			return
		}
		ac.logger.Error("add settlement failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("SETTLEMENT_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feature_id": sp.FeatureID})
}

// DeleteSettlement handles DELETE /v1/admin/settlements/:id.
func (ac *AdminController) DeleteSettlement(c *gin.Context) {
	err := ac.adminService.DeleteSettlement(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gazetteer.ErrNotFound) {
			c.JSON(http.StatusNotFound, responses.NewError("NOT_FOUND", err.Error()))
			return
		}
		ac.logger.Error("delete settlement failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("SETTLEMENT_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// AddAlias handles POST /v1/admin/aliases.
func (ac *AdminController) AddAlias(c *gin.Context) {
	var req requests.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", err.Error()))
		return
	}

	err := ac.adminService.AddAlias(c.Request.Context(), req.Layer, req.FeatureID, req.Alias)
	if err != nil {
		switch {
		case errors.Is(err, gazetteer.ErrNotFound):
			c.JSON(http.StatusNotFound, responses.NewError("NOT_FOUND", err.Error()))
		case errors.Is(err, services.ErrInvalidSettlement):
			c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", err.Error()))
		default:
			ac.logger.Error("add alias failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, responses.NewError("ALIAS_ERROR", err.Error()))
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feature_id": req.FeatureID, "alias": req.Alias})
}

// ClearCache handles POST /v1/admin/cache/clear.
func (ac *AdminController) ClearCache(c *gin.Context) {
	if err := ac.adminService.ClearCache(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, responses.NewError("CACHE_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// Stats handles GET /v1/admin/stats.
func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.adminService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.NewError("STATS_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, stats)
}
