package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Inline rows keyed by data source id. They take precedence over the
// server's configured sources for the request that carries them.
type inlineRows map[string][]map[string]any

type executeRequest struct {
	Query query.DataQuery `json:"query"`
	Rows  inlineRows      `json:"rows,omitempty"`
}

type resolveRequest struct {
	Sections []query.Section `json:"sections"`
	Rows     inlineRows      `json:"rows,omitempty"`
}

type errorResponse struct {
	Error string   `json:"error"`
	Code  string   `json:"code,omitempty"`
	Path  []string `json:"path,omitempty"`

	Validation *query.ValidationResult `json:"validation,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) validateQuery(c *gin.Context) {
	var q query.DataQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, query.Validate(q))
}

// executeQuery validates first: an invalid query is a client error. Once
// executed, the result is returned with 200 even when it captured an error.
func (s *Server) executeQuery(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	if v := query.Validate(req.Query); !v.Valid {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:      engine.NewValidationError("", v.Errors).Message,
			Code:       string(engine.ErrCodeValidation),
			Validation: &v,
		})
		return
	}

	result := s.executorFor(req.Rows).Execute(c.Request.Context(), req.Query)
	c.JSON(http.StatusOK, result)
}

func (s *Server) resolveReport(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	opts := []engine.ResolverOption{engine.WithResolverLogger(s.logger)}
	if s.parallelism > 1 {
		opts = append(opts, engine.WithParallelism(s.parallelism))
	}
	if s.passIDs != nil {
		opts = append(opts, engine.WithPassIDGenerator(s.passIDs))
	}
	resolver := engine.NewResolver(s.executorFor(req.Rows), opts...)

	res, err := resolver.Resolve(c.Request.Context(), req.Sections)
	if err != nil {
		var ee *engine.EngineError
		if !errors.As(err, &ee) {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		status := http.StatusInternalServerError
		switch ee.Code {
		case engine.ErrCodeCycleDetected:
			status = http.StatusUnprocessableEntity
		case engine.ErrCodeCancelled:
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, errorResponse{Error: ee.Message, Code: string(ee.Code), Path: ee.Path})
		return
	}
	c.JSON(http.StatusOK, res)
}

// executorFor returns the shared executor, or a request-scoped one when the
// request carries its own rows.
func (s *Server) executorFor(rows inlineRows) engine.Executor {
	if len(rows) == 0 {
		return s.exec
	}
	sets := make(map[string][]record.Record, len(rows))
	for id, raw := range rows {
		recs := make([]record.Record, len(raw))
		for i, m := range raw {
			recs[i] = record.FromMap(m)
		}
		sets[id] = recs
	}
	return s.newOrchestrator(datasource.Chain{datasource.NewMemorySource(sets), s.source})
}
