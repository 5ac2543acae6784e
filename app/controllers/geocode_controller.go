package controllers

import (
	"compress/gzip"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/requests"
	"github.com/gazetteer-geocoder/app/responses"
	"github.com/gazetteer-geocoder/app/services"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/resolver"
)

// GeocodeController handles the public resolution endpoints.
type GeocodeController struct {
	geocodeService *services.GeocodeService
	resolver       *resolver.SpatialResolver
	snapshots      *index.Store
	logger         *zap.Logger
}

func NewGeocodeController(gs *services.GeocodeService, sr *resolver.SpatialResolver, snapshots *index.Store, logger *zap.Logger) *GeocodeController {
	return &GeocodeController{
		geocodeService: gs,
		resolver:       sr,
		snapshots:      snapshots,
		logger:         logger,
	}
}

// Resolve handles POST /v1/locations/resolve.
func (gc *GeocodeController) Resolve(c *gin.Context) {
	var req requests.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", err.Error()))
		return
	}

	start := time.Now()
	con := req.Constraint.ToConstraint(gc.resolver.Normalizer())
	result, err := gc.geocodeService.Geocode(c.Request.Context(), req.Text, con, req.ShouldUseCache())
	if err != nil {
		gc.writeResolveError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.ResolveResponse{
		Result: result,
		TookMs: time.Since(start).Milliseconds(),
	})
}

// BatchResolve handles POST /v1/locations/batch.
func (gc *GeocodeController) BatchResolve(c *gin.Context) {
	var req requests.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", err.Error()))
		return
	}

	status := gc.geocodeService.StartBatchJob(req.Texts)
	c.JSON(http.StatusAccepted, responses.BatchAccepted{
		JobID:         status.ID,
		Status:        status.Status,
		Total:         status.Total,
		EstimatedSecs: int64(gc.geocodeService.EstimateBatchDuration(status.Total).Seconds()) + 1,
	})
}

// JobStatus handles GET /v1/locations/jobs/:id.
func (gc *GeocodeController) JobStatus(c *gin.Context) {
	status, err := gc.geocodeService.JobStatus(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, responses.NewError("JOB_NOT_FOUND", err.Error()))
		return
	}
	c.JSON(http.StatusOK, status)
}

// JobResults handles GET /v1/locations/jobs/:id/results. With format=ndjson
// the results stream line by line, optionally gzip-compressed.
func (gc *GeocodeController) JobResults(c *gin.Context) {
	jobID := c.Param("id")

	if c.Query("format") == "ndjson" {
		gc.streamNDJSONResults(c, jobID, c.Query("gzip") == "1")
		return
	}

	results, err := gc.geocodeService.JobResults(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, responses.NewError("JOB_NOT_FOUND", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}

func (gc *GeocodeController) streamNDJSONResults(c *gin.Context, jobID string, gzipEnabled bool) {
	c.Header("Content-Type", "application/x-ndjson")
	if gzipEnabled {
		c.Header("Content-Encoding", "gzip")
	}
	c.Status(http.StatusOK)

	var err error
	if gzipEnabled {
		gz := gzip.NewWriter(c.Writer)
		err = gc.geocodeService.StreamJobResults(jobID, gz)
		if closeErr := gz.Close(); err == nil {
			err = closeErr
		}
	} else {
		err = gc.geocodeService.StreamJobResults(jobID, c.Writer)
	}
	if err != nil {
		// Headers are gone; log and cut the stream.
		gc.logger.Warn("job result stream failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
}

// Extract handles POST /v1/locations/extract.
func (gc *GeocodeController) Extract(c *gin.Context) {
	var req requests.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", err.Error()))
		return
	}

	result, err := gc.geocodeService.ExtractFromDocument(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.NewError("EXTRACT_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Nearby handles GET /v1/locations/nearby?lat=&lon=&radius_km=&limit=.
func (gc *GeocodeController) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "lat and lon are required"))
		return
	}
	radiusKm, err := strconv.ParseFloat(c.DefaultQuery("radius_km", "10"), 64)
	if err != nil || radiusKm <= 0 {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "radius_km must be positive"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	results, err := gc.geocodeService.Nearby(c.Request.Context(), lat, lon, radiusKm, limit)
	if err != nil {
		gc.writeResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NearbyResponse{Count: len(results), Results: results})
}

// Health handles GET /health.
func (gc *GeocodeController) Health(c *gin.Context) {
	resp := responses.HealthResponse{Status: "ok"}
	if snap := gc.snapshots.Current(); snap != nil {
		resp.IndexReady = true
		resp.GazetteerVersion = snap.Version()
	} else {
		resp.Status = "degraded"
	}

	code := http.StatusOK
	if !resp.IndexReady {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (gc *GeocodeController) writeResolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, resolver.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, responses.NewError("EMPTY_INPUT", err.Error()))
	case errors.Is(err, resolver.ErrDataStore):
		c.JSON(http.StatusServiceUnavailable, responses.NewError("INDEX_UNAVAILABLE", err.Error()))
	default:
		gc.logger.Error("resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("RESOLVE_ERROR", err.Error()))
	}
}
