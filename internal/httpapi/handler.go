package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/geo"
	"qrattend/internal/lesson"
	"qrattend/internal/metrics"
	"qrattend/internal/teacher"
)

// LessonStore is the lesson persistence surface the handlers need.
type LessonStore interface {
	Create(ctx context.Context, l *lesson.Lesson) error
	GetByID(ctx context.Context, id string) (*lesson.Lesson, error)
	GetOwned(ctx context.Context, id string, teacherID int64) (*lesson.Lesson, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]lesson.Lesson, error)
	Invalidate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AttendanceLister lists a lesson's records for the owning teacher.
type AttendanceLister interface {
	ListByLesson(ctx context.Context, lessonID string) ([]attendance.Record, error)
}

// TokenStore persists refresh tokens for rotation.
type TokenStore interface {
	SaveRefreshToken(ctx context.Context, teacherID int64, token string, expiresAt time.Time) error
	RefreshTokenUsable(ctx context.Context, token string) (bool, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

// AuthConfig carries the token-issuing knobs.
type AuthConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler holds the service dependencies for all routes.
type Handler struct {
	teachers   *teacher.Service
	tokens     TokenStore
	lessons    LessonStore
	recorder   *attendance.Service
	attendance AttendanceLister
	authCfg    AuthConfig
}

// New creates a handler.
func New(teachers *teacher.Service, tokens TokenStore, lessons LessonStore, recorder *attendance.Service, lister AttendanceLister, authCfg AuthConfig) *Handler {
	return &Handler{
		teachers:   teachers,
		tokens:     tokens,
		lessons:    lessons,
		recorder:   recorder,
		attendance: lister,
		authCfg:    authCfg,
	}
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// ---------- Teacher accounts ----------

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a teacher account and signs it in.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Name, email and password are required.")
		return
	}

	name := sanitizeName(req.Name)
	email := sanitizeEmail(req.Email)
	if !validLength(name, "name") {
		fail(c, http.StatusBadRequest, "Name must be between 2 and 100 characters.")
		return
	}
	if !validLength(email, "email") || !validEmail(email) {
		fail(c, http.StatusBadRequest, "Enter a valid email address.")
		return
	}
	if !validLength(req.Password, "password") {
		fail(c, http.StatusBadRequest, "Password must be between 6 and 100 characters.")
		return
	}

	t, err := h.teachers.Register(c.Request.Context(), name, email, req.Password)
	if err != nil {
		if errors.Is(err, teacher.ErrEmailTaken) {
			fail(c, http.StatusConflict, "This email address is already registered.")
			return
		}
		log.Printf("register failed: %v", err)
		fail(c, http.StatusInternalServerError, "Registration failed.")
		return
	}

	h.issueTokens(c, t, http.StatusCreated, "Registration successful.")
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues tokens.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Email and password are required.")
		return
	}

	t, err := h.teachers.Authenticate(c.Request.Context(), sanitizeEmail(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, teacher.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		log.Printf("login failed: %v", err)
		fail(c, http.StatusInternalServerError, "Login failed.")
		return
	}

	h.issueTokens(c, t, http.StatusOK, "Login successful.")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token into a fresh pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "A refresh token is required.")
		return
	}

	claims, err := auth.Parse(req.RefreshToken, h.authCfg.SigningKey, h.authCfg.Issuer)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token. Please sign in again.")
		return
	}
	usable, err := h.tokens.RefreshTokenUsable(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Printf("refresh lookup failed: %v", err)
		fail(c, http.StatusInternalServerError, "Token refresh failed.")
		return
	}
	if !usable {
		fail(c, http.StatusUnauthorized, "Invalid or expired token. Please sign in again.")
		return
	}
	id, err := claims.TeacherID()
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token. Please sign in again.")
		return
	}

	if err := h.tokens.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		log.Printf("refresh revoke failed: %v", err)
	}
	h.issueTokens(c, &teacher.Teacher{ID: id, Name: claims.Name, Email: claims.Email}, http.StatusOK, "Token refreshed.")
}

// Logout revokes a refresh token.
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "A refresh token is required.")
		return
	}
	if err := h.tokens.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		log.Printf("logout revoke failed: %v", err)
		fail(c, http.StatusInternalServerError, "Logout failed.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Signed out."})
}

func (h *Handler) issueTokens(c *gin.Context, t *teacher.Teacher, status int, message string) {
	pair, err := auth.Issue(t.ID, t.Name, t.Email, h.authCfg.Issuer, h.authCfg.SigningKey, h.authCfg.AccessTTL, h.authCfg.RefreshTTL)
	if err != nil {
		log.Printf("token issue failed: %v", err)
		fail(c, http.StatusInternalServerError, "Token issue failed.")
		return
	}
	if err := h.tokens.SaveRefreshToken(c.Request.Context(), t.ID, pair.RefreshToken, pair.RefreshExp); err != nil {
		log.Printf("refresh token save failed: %v", err)
	}
	c.JSON(status, gin.H{
		"success":       true,
		"message":       message,
		"teacher":       gin.H{"id": t.ID, "name": t.Name, "email": t.Email},
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
	})
}

// ---------- Lessons ----------

type createLessonRequest struct {
	Name            string   `json:"name" binding:"required"`
	Date            string   `json:"date" binding:"required"`
	LocationEnabled bool     `json:"location_enabled"`
	CenterLatitude  *float64 `json:"center_latitude"`
	CenterLongitude *float64 `json:"center_longitude"`
	RadiusMeters    *int     `json:"radius_meters"`
	LocationName    string   `json:"location_name"`
}

// CreateLesson creates a lesson, optionally with a location policy.
func (h *Handler) CreateLesson(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	teacherID, err := claims.TeacherID()
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token. Please sign in again.")
		return
	}

	var req createLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Lesson name and date are required.")
		return
	}

	name := sanitizeName(req.Name)
	if !validLength(name, "lessonName") {
		fail(c, http.StatusBadRequest, "Lesson name must be between 2 and 200 characters.")
		return
	}

	l := &lesson.Lesson{
		TeacherID:       teacherID,
		Name:            name,
		Date:            req.Date,
		LocationEnabled: req.LocationEnabled,
	}
	if req.LocationEnabled {
		// The creation-time invariant: an enabled policy always carries a
		// center and a radius.
		if req.CenterLatitude == nil || req.CenterLongitude == nil || req.RadiusMeters == nil {
			fail(c, http.StatusBadRequest, "Coordinates and a radius are required when the location restriction is enabled.")
			return
		}
		if *req.RadiusMeters < lesson.MinRadiusMeters || *req.RadiusMeters > lesson.MaxRadiusMeters {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Radius must be between %d and %d meters.", lesson.MinRadiusMeters, lesson.MaxRadiusMeters))
			return
		}
		l.CenterLatitude = req.CenterLatitude
		l.CenterLongitude = req.CenterLongitude
		l.RadiusMeters = req.RadiusMeters
		if req.LocationName != "" {
			label := sanitizeName(req.LocationName)
			if !validLength(label, "locationName") {
				fail(c, http.StatusBadRequest, "Location label must be between 1 and 200 characters.")
				return
			}
			l.LocationName = &label
		}
	}

	if err := h.lessons.Create(c.Request.Context(), l); err != nil {
		log.Printf("lesson create failed: %v", err)
		fail(c, http.StatusInternalServerError, "Lesson could not be created.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"message":          "Lesson created.",
		"lesson_id":        l.ID,
		"location_enabled": l.LocationEnabled,
	})
}

// ListLessons returns the signed-in teacher's lessons.
func (h *Handler) ListLessons(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	teacherID, err := claims.TeacherID()
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token. Please sign in again.")
		return
	}

	lessons, err := h.lessons.ListByTeacher(c.Request.Context(), teacherID)
	if err != nil {
		log.Printf("lesson list failed: %v", err)
		fail(c, http.StatusInternalServerError, "Lessons could not be listed.")
		return
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lessons": lessons})
}

// GetLesson returns public lesson info for the QR landing page.
func (h *Handler) GetLesson(c *gin.Context) {
	l, err := h.lessons.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("lesson fetch failed: %v", err)
		fail(c, http.StatusInternalServerError, "Lesson could not be fetched.")
		return
	}
	if l == nil {
		fail(c, http.StatusNotFound, "Lesson not found.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lesson": l})
}

// InvalidateLesson flips the one-way invalidation flag on an owned lesson.
func (h *Handler) InvalidateLesson(c *gin.Context) {
	l, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	if l.IsInvalidated {
		fail(c, http.StatusBadRequest, "This QR code has already been invalidated.")
		return
	}
	if err := h.lessons.Invalidate(c.Request.Context(), l.ID); err != nil {
		log.Printf("lesson invalidate failed: %v", err)
		fail(c, http.StatusInternalServerError, "QR code could not be invalidated.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "QR code invalidated."})
}

// DeleteLesson removes an owned lesson and everything recorded against it.
func (h *Handler) DeleteLesson(c *gin.Context) {
	l, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	if err := h.lessons.Delete(c.Request.Context(), l.ID); err != nil {
		log.Printf("lesson delete failed: %v", err)
		fail(c, http.StatusInternalServerError, "Lesson could not be deleted.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Lesson and all related records deleted."})
}

// ListAttendance returns a lesson's attendance records to its owner.
func (h *Handler) ListAttendance(c *gin.Context) {
	l, ok := h.ownedLesson(c)
	if !ok {
		return
	}
	records, err := h.attendance.ListByLesson(c.Request.Context(), l.ID)
	if err != nil {
		log.Printf("attendance list failed: %v", err)
		fail(c, http.StatusInternalServerError, "Attendance list could not be fetched.")
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"lesson": gin.H{
			"id":             l.ID,
			"name":           l.Name,
			"date":           l.Date,
			"is_invalidated": l.IsInvalidated,
		},
		"attendances": records,
		"total":       len(records),
	})
}

// ownedLesson resolves :id and enforces ownership; replies 404 on any miss so
// existence is not leaked to other teachers.
func (h *Handler) ownedLesson(c *gin.Context) (*lesson.Lesson, bool) {
	claims, _ := auth.ClaimsFrom(c)
	teacherID, err := claims.TeacherID()
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token. Please sign in again.")
		return nil, false
	}
	l, err := h.lessons.GetOwned(c.Request.Context(), c.Param("id"), teacherID)
	if err != nil {
		log.Printf("lesson lookup failed: %v", err)
		fail(c, http.StatusInternalServerError, "Lesson lookup failed.")
		return nil, false
	}
	if l == nil {
		fail(c, http.StatusNotFound, "Lesson not found or you do not have access to it.")
		return nil, false
	}
	return l, true
}

// ---------- Attendance submission ----------

type takeAttendanceRequest struct {
	LessonID    string   `json:"lesson_id" binding:"required"`
	StudentName string   `json:"student_name" binding:"required"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Accuracy    *float64 `json:"accuracy"`
}

// TakeAttendance is the public student-facing submission endpoint.
func (h *Handler) TakeAttendance(c *gin.Context) {
	var req takeAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(string(attendance.ReasonInvalidInput)).Inc()
		fail(c, http.StatusBadRequest, "Please enter your full name.")
		return
	}

	out, err := h.recorder.Submit(c.Request.Context(), attendance.Submission{
		LessonID:       req.LessonID,
		StudentName:    sanitizeName(req.StudentName),
		Origin:         c.ClientIP(),
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		AccuracyMeters: req.Accuracy,
	})
	if err != nil {
		log.Printf("attendance submit failed: %v", err)
		metrics.SubmissionsTotal.WithLabelValues("internal_error").Inc()
		fail(c, http.StatusInternalServerError, "Attendance could not be recorded.")
		return
	}

	metrics.SubmissionsTotal.WithLabelValues(string(out.Reason)).Inc()
	if out.LocationReason != "" {
		metrics.ValidationsTotal.WithLabelValues(string(out.LocationReason)).Inc()
	}

	body := gin.H{
		"success":          out.Accepted,
		"message":          out.Message,
		"location_enabled": out.LocationEnabled,
	}
	if out.Reason == attendance.ReasonLocationRejected {
		body["reason"] = string(out.LocationReason)
	}
	if out.DistanceMeters != nil {
		body["distance"] = *out.DistanceMeters
	}
	c.JSON(statusFor(out), body)
}

func statusFor(out attendance.Outcome) int {
	if out.Accepted {
		return http.StatusOK
	}
	switch out.Reason {
	case attendance.ReasonInvalidInput:
		return http.StatusBadRequest
	case attendance.ReasonLessonNotFound:
		return http.StatusNotFound
	case attendance.ReasonLessonInvalidated:
		return http.StatusGone
	case attendance.ReasonDuplicateOrigin:
		return http.StatusConflict
	case attendance.ReasonLocationRejected:
		if out.LocationReason == geo.ReasonMissingLocation {
			return http.StatusBadRequest
		}
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
