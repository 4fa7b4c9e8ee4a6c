package media

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"animehub/internal/airing"
	"animehub/internal/events"
	"animehub/internal/reconcile"
	"animehub/internal/relations"
	"animehub/pkg/apperr"
	"animehub/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Graph  *relations.Manager
	Engine *reconcile.Engine
	Hub    *events.Hub
}

func NewHandler(repo *Repo, graph *relations.Manager, engine *reconcile.Engine, hub *events.Hub) *Handler {
	return &Handler{Repo: repo, Graph: graph, Engine: engine, Hub: hub}
}

// RegisterMediaRoutes mounts the public read surface for one kind.
func (h *Handler) RegisterMediaRoutes(rg *gin.RouterGroup, kind models.MediaKind) {
	rg.GET("", h.list(kind))
	rg.GET("/:id", h.get(kind))
	rg.GET("/:id/diff", h.diff(kind))
}

// RegisterMediaAdminRoutes mounts the mutating surface; callers put these
// behind auth middleware.
func (h *Handler) RegisterMediaAdminRoutes(rg *gin.RouterGroup, kind models.MediaKind) {
	rg.POST("", h.create(kind))
	rg.POST("/:id/relations", h.addRelation(kind))
	rg.POST("/:id/characters", h.addCharacterLink(kind))
	rg.POST("/:id/reconcile", h.reconcile(kind))
}

func (h *Handler) RegisterCharacterRoutes(public, admin *gin.RouterGroup) {
	public.GET("", h.listCharacters)
	public.GET("/:id", h.getCharacter)
	admin.POST("", h.createCharacter)
}

func (h *Handler) list(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := ListQuery{
			Kind:   kind,
			Q:      c.Query("q"),
			Status: c.Query("status"),
			Genre:  c.Query("genre"),
			Limit:  parseInt(c.Query("limit"), 20),
			Offset: parseInt(c.Query("offset"), 0),
		}

		total, err := h.Repo.CountMedia(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
			return
		}
		items, err := h.Repo.ListMedia(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total":  total,
			"limit":  q.Limit,
			"offset": q.Offset,
			"items":  items,
		})
	}
}

func (h *Handler) get(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := h.Repo.GetMedia(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if m.NextAiring != nil {
			m.NextAiring.TimeUntil = airing.TimeUntil(*m.NextAiring, time.Now())
		}
		c.JSON(http.StatusOK, m)
	}
}

type createMediaRequest struct {
	SourceID    int              `json:"source_id" binding:"required"`
	Title       models.TitleSet  `json:"title"`
	Format      string           `json:"format"`
	Status      string           `json:"status"`
	SourceOf    string           `json:"source_of"`
	Country     string           `json:"country"`
	StartDate   models.FuzzyDate `json:"start_date"`
	EndDate     models.FuzzyDate `json:"end_date"`
	Episodes    int              `json:"episodes"`
	Duration    int              `json:"duration"`
	Chapters    int              `json:"chapters"`
	Volumes     int              `json:"volumes"`
	Genres      []string         `json:"genres"`
	Description string           `json:"description"`
	CoverImage  string           `json:"cover_image"`
}

func (h *Handler) create(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createMediaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if strings.TrimSpace(req.Title.Romaji) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title.romaji required"})
			return
		}

		// external catalog ids are unique per kind
		existing, err := h.Repo.GetMediaBySourceID(c.Request.Context(), kind, req.SourceID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "source_id already tracked", "id": existing.ID})
			return
		}

		now := time.Now().UTC()
		m := &models.Media{
			ID:             uuid.NewString(),
			Kind:           kind,
			SourceID:       req.SourceID,
			Title:          req.Title,
			Format:         req.Format,
			Status:         req.Status,
			SourceOf:       req.SourceOf,
			Country:        req.Country,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Episodes:       req.Episodes,
			Duration:       req.Duration,
			Chapters:       req.Chapters,
			Volumes:        req.Volumes,
			Genres:         req.Genres,
			Description:    req.Description,
			CoverImage:     req.CoverImage,
			LastActivityAt: now,
			CreatedAt:      now,
		}
		if err := h.Repo.InsertMedia(c.Request.Context(), m); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

type addRelationRequest struct {
	TargetID   string `json:"target_id" binding:"required"`
	TargetKind string `json:"target_kind" binding:"required"`
	Type       string `json:"type" binding:"required"`
}

func (h *Handler) addRelation(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addRelationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		sourceID := c.Param("id")
		edge := models.RelationEdge{
			TargetID:   req.TargetID,
			TargetKind: models.MediaKind(strings.ToUpper(req.TargetKind)),
			Type:       models.RelationType(strings.ToUpper(req.Type)),
		}

		forward, reverse, err := h.Graph.AddOrUpdateEdge(c.Request.Context(), sourceID, kind, edge)
		if err != nil {
			respondErr(c, err)
			return
		}

		if h.Hub != nil {
			h.Hub.RelationUpdated(sourceID, *forward, reverse)
		}
		c.JSON(http.StatusOK, gin.H{"edge": forward, "reverse": reverse})
	}
}

type addCharacterLinkRequest struct {
	CharacterID string `json:"character_id" binding:"required"`
	Role        string `json:"role" binding:"required"`
}

func (h *Handler) addCharacterLink(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCharacterLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		link, err := h.Graph.AddCharacterLink(
			c.Request.Context(),
			c.Param("id"), kind,
			req.CharacterID,
			models.CharacterRole(strings.ToUpper(req.Role)),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func (h *Handler) diff(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.Engine.Diff(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		if report == nil {
			c.JSON(http.StatusOK, gin.H{"skipped": true})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func (h *Handler) reconcile(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := h.Engine.ApplyCanonical(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		if updated == nil {
			c.JSON(http.StatusOK, gin.H{"skipped": true})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func (h *Handler) listCharacters(c *gin.Context) {
	items, err := h.Repo.ListCharacters(
		c.Request.Context(),
		c.Query("q"),
		parseInt(c.Query("limit"), 20),
		parseInt(c.Query("offset"), 0),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) getCharacter(c *gin.Context) {
	ch, err := h.Repo.GetCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

type createCharacterRequest struct {
	SourceID   int    `json:"source_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	NativeName string `json:"native_name"`
	Biography  string `json:"biography"`
	Gender     string `json:"gender"`
	Age        string `json:"age"`
	Image      string `json:"image"`
}

func (h *Handler) createCharacter(c *gin.Context) {
	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if strings.TrimSpace(req.FirstName) == "" && strings.TrimSpace(req.NativeName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a name is required"})
		return
	}

	now := time.Now().UTC()
	ch := &models.Character{
		ID:             uuid.NewString(),
		SourceID:       req.SourceID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		NativeName:     req.NativeName,
		Biography:      req.Biography,
		Gender:         req.Gender,
		Age:            req.Age,
		Image:          req.Image,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := h.Repo.InsertCharacter(c.Request.Context(), ch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// respondErr maps the error taxonomy onto HTTP status codes.
func respondErr(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
