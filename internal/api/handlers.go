package api

import (
	"errors"
	"net/http"
	"strings"

	"bistro/internal/agents"
	"bistro/internal/database"
	"bistro/internal/models"
	"bistro/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// searchLimit caps menu search results
const searchLimit = 5

// MessageRequest is a customer message
type MessageRequest struct {
	Message string `json:"message"`
}

// SessionResponse is returned when a conversation starts or restarts
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"greeting"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// handleMenu lists the menu, optionally narrowed by category, dietary tag or a search query
func (s *Server) handleMenu(c *gin.Context) {
	items := s.menu.Items()

	if category := c.Query("category"); category != "" {
		cat := models.MenuCategory(strings.ToLower(category))
		if !knownCategory(cat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category: " + category})
			return
		}
		items = keep(items, func(item models.MenuItem) bool { return item.IsInCategory(cat) })
	}
	if tag := c.Query("dietary"); tag != "" {
		items = keep(items, func(item models.MenuItem) bool { return item.HasDietary(tag) })
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		matched, err := s.searchMenu(q)
		if err != nil {
			s.logger.Error("menu search failed", zap.String("query", q), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Menu search failed"})
			return
		}
		items = keep(items, func(item models.MenuItem) bool { return matched[item.Name] })
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) searchMenu(q string) (map[string]bool, error) {
	matched := make(map[string]bool)
	if s.index == nil {
		if item, _, ok := s.menu.Find(q); ok {
			matched[item.Name] = true
		}
		return matched, nil
	}
	hits, err := s.index.Search(q, searchLimit)
	if err != nil {
		return nil, err
	}
	for _, hit := range hits {
		matched[hit.Item.Name] = true
	}
	return matched, nil
}

func knownCategory(cat models.MenuCategory) bool {
	for _, c := range models.MenuCategories {
		if c == cat {
			return true
		}
	}
	return false
}

func keep(items []models.MenuItem, fn func(models.MenuItem) bool) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(items))
	for _, item := range items {
		if fn(item) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Server) handleMetrics(c *gin.Context) {
	if s.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitoring is disabled"})
		return
	}
	c.JSON(http.StatusOK, s.monitor.Snapshot(c.Request.Context()))
}

func (s *Server) handleGetOrder(c *gin.Context) {
	if s.orders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Order storage is disabled"})
		return
	}

	order, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to load order", zap.String("order_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()

	var greeting string
	_ = sess.Do(func(coord *agents.Coordinator) error {
		greeting = coord.Greeting()
		return nil
	})
	c.JSON(http.StatusCreated, SessionResponse{SessionID: sess.ID, Greeting: greeting})
}

// session resolves the :id parameter and writes a 404 when it is unknown
func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var snap models.StateSnapshot
	_ = sess.Do(func(coord *agents.Coordinator) error {
		snap = coord.Snapshot()
		return nil
	})
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMessage(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var reply *agents.Reply
	err := sess.Do(func(coord *agents.Coordinator) error {
		var err error
		reply, err = coord.ProcessInput(c.Request.Context(), req.Message)
		return err
	})
	if err != nil {
		s.logger.Error("failed to process message", zap.String("session_id", sess.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleOrder(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var summary agents.OrderSummary
	_ = sess.Do(func(coord *agents.Coordinator) error {
		summary = coord.OrderDetails()
		return nil
	})
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var analytics agents.Analytics
	_ = sess.Do(func(coord *agents.Coordinator) error {
		analytics = coord.Analytics()
		return nil
	})
	c.JSON(http.StatusOK, analytics)
}

func (s *Server) handleReset(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var greeting string
	_ = sess.Do(func(coord *agents.Coordinator) error {
		coord.Reset()
		greeting = coord.Greeting()
		return nil
	})
	c.JSON(http.StatusOK, SessionResponse{SessionID: sess.ID, Greeting: greeting})
}

func (s *Server) handleSuggestions(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var suggestions []string
	_ = sess.Do(func(coord *agents.Coordinator) error {
		suggestions = coord.Suggestions(c.Request.Context())
		return nil
	})
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *Server) handleResolve(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var snap models.StateSnapshot
	_ = sess.Do(func(coord *agents.Coordinator) error {
		coord.ResolveIntervention()
		snap = coord.Snapshot()
		return nil
	})
	c.JSON(http.StatusOK, snap)
}
