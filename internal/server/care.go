package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/skintriage/internal/consultation"
	"github.com/Skufu/skintriage/internal/hospitals"
)

func (s *Server) nearbyHospitals(c *gin.Context) {
	if s.Hospitals == nil {
		errorJSON(c, http.StatusServiceUnavailable, hospitals.ErrNotConfigured.Error())
		return
	}

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		errorJSON(c, http.StatusBadRequest, "Latitude and longitude are required")
		return
	}

	var radius uint = hospitals.DefaultRadius
	if r := c.Query("radius"); r != "" {
		n, err := strconv.ParseUint(r, 10, 32)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "radius must be a positive number of meters")
			return
		}
		radius = uint(n)
	}

	found, err := s.Hospitals.Nearby(c.Request.Context(), hospitals.Location{Lat: lat, Lng: lng}, radius)
	if err != nil {
		s.Logger.Error().Err(err).Float64("lat", lat).Float64("lng", lng).Msg("nearby hospitals")
		errorJSON(c, http.StatusBadGateway, "Failed to fetch nearby hospitals")
		return
	}
	if found == nil {
		found = []hospitals.Hospital{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "hospitals": found})
}

func (s *Server) hospitalDetails(c *gin.Context) {
	if s.Hospitals == nil {
		errorJSON(c, http.StatusServiceUnavailable, hospitals.ErrNotConfigured.Error())
		return
	}

	details, err := s.Hospitals.Details(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		s.Logger.Error().Err(err).Str("place_id", c.Param("placeId")).Msg("hospital details")
		errorJSON(c, http.StatusBadGateway, "Failed to fetch hospital details")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "hospital": details})
}

type scheduleRequest struct {
	DiagnosisID       string `json:"diagnosisId" binding:"required"`
	PreferredDateTime string `json:"preferredDateTime"`
	Notes             string `json:"notes"`
}

func (s *Server) scheduleConsultation(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, consultation.ErrMissingDiagnosis.Error())
		return
	}

	booking, err := s.Scheduler.Schedule(c.Request.Context(), consultation.Request{
		DiagnosisID:       req.DiagnosisID,
		PreferredDateTime: req.PreferredDateTime,
		Notes:             req.Notes,
	})
	if errors.Is(err, consultation.ErrMissingDiagnosis) {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to schedule consultation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Consultation request submitted successfully",
		"consultationId": booking.ConsultationID,
		"scheduledTime":  booking.ScheduledTime,
	})
}

func (s *Server) availableDoctors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "doctors": consultation.Doctors()})
}
