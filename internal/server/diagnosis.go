package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Skufu/skintriage/internal/store"
	"github.com/Skufu/skintriage/internal/triage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type patientInfo struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Age            *int     `json:"age"`
	Gender         string   `json:"gender"`
	MedicalHistory []string `json:"medicalHistory"`
}

type diagnosisReport struct {
	Patient  json.RawMessage   `json:"patient"`
	Symptoms triage.SymptomSet `json:"symptoms"`
	Findings triage.Result     `json:"findings"`
}

type uploadResponse struct {
	Success         bool              `json:"success"`
	Diagnosis       triage.Result     `json:"diagnosis"`
	ImageURL        string            `json:"imageUrl"`
	DiagnosisID     string            `json:"diagnosisId"`
	Timestamp       string            `json:"timestamp"`
	AIMode          triage.Provenance `json:"aiMode"`
	AIError         *string           `json:"aiError"`
	Model           string            `json:"model,omitempty"`
	AvailableModels []string          `json:"availableModels"`
	Report          diagnosisReport   `json:"report"`
}

func (s *Server) uploadAndDiagnose(c *gin.Context) {
	ctx := c.Request.Context()
	log := s.Logger.With().Str("request_id", c.GetString("request_id")).Logger()

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorJSON(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		errorJSON(c, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.Options.MaxUploadBytes+1))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "could not read image")
		return
	}
	if int64(len(data)) > s.Options.MaxUploadBytes {
		errorJSON(c, http.StatusRequestEntityTooLarge, "image exceeds the upload limit")
		return
	}
	if len(data) == 0 {
		errorJSON(c, http.StatusBadRequest, "No image file provided")
		return
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		errorJSON(c, http.StatusUnsupportedMediaType, "Only image files are allowed")
		return
	}

	symptoms := triage.NormalizeSymptomsJSON([]byte(c.PostForm("symptoms")))
	patient, info := parsePatient(c.PostForm("userInfo"), log)

	ref, err := s.Images.Put(ctx, header.Filename, mime.String(), data)
	if err != nil {
		log.Error().Err(err).Msg("store image")
		errorJSON(c, http.StatusInternalServerError, "Diagnosis failed")
		return
	}

	opts := triage.Options{ForceMock: c.PostForm("useMockAI") == "true"}
	outcome, err := s.Pipeline.Diagnose(ctx, triage.Image{Data: data, MIMEType: mime.String()}, symptoms, opts)
	if err != nil {
		s.discardImage(c, ref.Key)
		errorJSON(c, http.StatusBadGateway, "Diagnosis failed")
		return
	}

	rec := &store.Record{
		ID:            uuid.New(),
		ImageURL:      ref.URL,
		ImageKey:      ref.Key,
		Symptoms:      symptoms,
		Result:        outcome.Result,
		Provenance:    outcome.Provenance,
		FailureDetail: outcome.FailureDetail,
		Model:         outcome.Model,
		Status:        store.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if email := strings.TrimSpace(info.Email); email != "" && s.Users != nil {
		u, err := s.Users.FindOrCreateByEmail(ctx, &store.User{
			Name:           info.Name,
			Email:          email,
			Phone:          info.Phone,
			Age:            info.Age,
			Gender:         info.Gender,
			MedicalHistory: info.MedicalHistory,
		})
		if err != nil {
			log.Warn().Err(err).Msg("link diagnosis to user")
		} else {
			rec.UserID = &u.ID
		}
	}

	if err := s.Records.Create(ctx, rec); err != nil {
		log.Error().Err(err).Msg("save diagnosis")
		s.discardImage(c, ref.Key)
		errorJSON(c, http.StatusInternalServerError, "Diagnosis failed")
		return
	}

	var aiErr *string
	if outcome.FailureDetail != "" {
		detail := outcome.FailureDetail
		aiErr = &detail
	}

	c.JSON(http.StatusOK, uploadResponse{
		Success:         true,
		Diagnosis:       outcome.Result,
		ImageURL:        ref.URL,
		DiagnosisID:     rec.ID.String(),
		Timestamp:       rec.CreatedAt.Format(time.RFC3339),
		AIMode:          outcome.Provenance,
		AIError:         aiErr,
		Model:           outcome.Model,
		AvailableModels: s.Selector.IDs(),
		Report: diagnosisReport{
			Patient:  patient,
			Symptoms: symptoms,
			Findings: outcome.Result,
		},
	})
}

// parsePatient echoes a well-formed userInfo object verbatim and extracts the
// fields used to link the record to a user.
func parsePatient(raw string, log zerolog.Logger) (json.RawMessage, patientInfo) {
	var info patientInfo
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") || !json.Valid([]byte(raw)) {
		if raw != "" {
			log.Debug().Msg("ignoring malformed userInfo")
		}
		return json.RawMessage("{}"), info
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		log.Debug().Err(err).Msg("userInfo fields have unexpected types")
	}
	return json.RawMessage(raw), info
}

func (s *Server) discardImage(c *gin.Context, key string) {
	if err := s.Images.Delete(c.Request.Context(), key); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("remove orphaned image")
	}
}

func (s *Server) followUpQuestions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "could not read request")
		return
	}

	// Accept either {"symptoms": {...}} or the bare symptom object.
	var wrapped struct {
		Symptoms json.RawMessage `json:"symptoms"`
	}
	raw := body
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Symptoms) > 0 {
		raw = wrapped.Symptoms
	}

	questions := s.Questions.Questions(c.Request.Context(), triage.NormalizeSymptomsJSON(raw))
	c.JSON(http.StatusOK, gin.H{"success": true, "questions": questions})
}

func (s *Server) getDiagnosis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid diagnosis id")
		return
	}

	rec, err := s.Records.GetByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Diagnosis not found")
		return
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("id", id.String()).Msg("load diagnosis")
		errorJSON(c, http.StatusInternalServerError, "failed to load diagnosis")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "diagnosis": rec})
}

func (s *Server) diagnosisHistory(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid user id")
		return
	}

	limit := queryInt(c, "limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	if s.Users != nil {
		_, err := s.Users.GetByID(c.Request.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			s.Logger.Error().Err(err).Str("user_id", userID.String()).Msg("load user")
			errorJSON(c, http.StatusInternalServerError, "failed to load history")
			return
		}
	}

	records, total, err := s.Records.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		s.Logger.Error().Err(err).Str("user_id", userID.String()).Msg("list diagnoses")
		errorJSON(c, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []*store.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"diagnoses": records,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

type reviewRequest struct {
	Status      string `json:"status" binding:"required"`
	DoctorNotes string `json:"doctorNotes"`
}

func (s *Server) reviewDiagnosis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid diagnosis id")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "status is required")
		return
	}
	if !store.ValidStatus(req.Status) {
		errorJSON(c, http.StatusBadRequest, "unknown status")
		return
	}

	err = s.Records.UpdateReview(c.Request.Context(), id, req.Status, req.DoctorNotes)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Diagnosis not found")
		return
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("id", id.String()).Msg("update review")
		errorJSON(c, http.StatusInternalServerError, "failed to update diagnosis")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": req.Status})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
