// Package httpapi exposes a RagDag over HTTP with github.com/gin-gonic/gin.
// Handlers close over the *ragdag.RagDag supplied by the caller rather than
// reaching for a package-level singleton, so one process can serve more than
// one store.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kxddry/ragdag/internal/logging"
	"github.com/kxddry/ragdag/internal/ragerr"
	"github.com/kxddry/ragdag/internal/search"
	"github.com/kxddry/ragdag/pkg/ragdag"
)

// New builds a gin engine serving r's operations. log receives one line per
// request at info level (method, path, status, request id); request bodies
// are not logged.
func New(r *ragdag.RagDag, log logging.Logger) *gin.Engine {
	if log == nil {
		log = logging.Noop()
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(log))

	engine.GET("/health", handleHealth)
	engine.POST("/add", handleAdd(r))
	engine.POST("/search", handleSearch(r))
	engine.POST("/ask", handleAsk(r))
	engine.GET("/graph", handleGraph(r))
	engine.GET("/neighbors/*path", handleNeighbors(r))
	engine.POST("/link", handleLink(r))
	engine.GET("/trace/*path", handleTrace(r))
	engine.POST("/relate", handleRelate(r))

	return engine
}

// requestID stamps every request with an X-Request-Id header, generating one
// when the caller didn't supply it.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func accessLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("%s %s -> %d [%s]", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.GetString("request_id"))
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
}

type addRequest struct {
	Path   string `json:"path" binding:"required"`
	Domain string `json:"domain"`
	Embed  *bool  `json:"embed"`
}

func handleAdd(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		embed := true
		if req.Embed != nil {
			embed = *req.Embed
		}
		res, err := r.Add(c.Request.Context(), req.Path, req.Domain, embed)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": res.Files, "chunks": res.Chunks, "skipped": res.Skipped})
	}
}

type searchRequest struct {
	Query  string `json:"query" binding:"required"`
	Mode   string `json:"mode"`
	Domain string `json:"domain"`
	Top    int    `json:"top"`
}

func handleSearch(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := searchRequest{Mode: "hybrid", Top: 10}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		results, err := r.Search(c.Request.Context(), req.Mode, req.Query, req.Domain, req.Top)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]gin.H, 0, len(results))
		for _, res := range results {
			content, _ := search.LoadChunkContent(r.Store.Root, res.ChunkRelPath)
			out = append(out, gin.H{
				"path":    res.ChunkRelPath,
				"score":   res.Score,
				"content": content,
				"domain":  res.Domain,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
	Domain   string `json:"domain"`
	UseLLM   *bool  `json:"use_llm"`
}

func handleAsk(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		useLLM := true
		if req.UseLLM != nil {
			useLLM = *req.UseLLM
		}
		res, err := r.Ask(c.Request.Context(), req.Question, req.Domain, 10, useLLM)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"answer": res.Answer, "context": res.Context, "sources": res.Sources})
	}
}

func handleGraph(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		sum, err := r.Graph(c.Query("domain"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"domains":    sum.Domains,
			"documents":  sum.Documents,
			"chunks":     sum.Chunks,
			"edges":      sum.Edges,
			"edge_types": sum.EdgesByType,
		})
	}
}

func handleNeighbors(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		node := trimLeadingSlash(c.Param("path"))
		edges, err := r.Neighbors(node)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, edges)
	}
}

type linkRequest struct {
	Source   string `json:"source" binding:"required"`
	Target   string `json:"target" binding:"required"`
	EdgeType string `json:"edge_type"`
}

func handleLink(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := linkRequest{EdgeType: "references"}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := r.Link(req.Source, req.Target, req.EdgeType); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleTrace(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		node := trimLeadingSlash(c.Param("path"))
		hops, err := r.Trace(node)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, hops)
	}
}

type relateRequest struct {
	Domain    string  `json:"domain"`
	Threshold float64 `json:"threshold"`
}

func handleRelate(r *ragdag.RagDag) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := relateRequest{Threshold: 0.8}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if _, err := r.Relate(req.Domain, req.Threshold); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if kind, ok := ragerr.KindOf(err); ok {
		switch kind {
		case ragerr.KindNotAStore, ragerr.KindUnsupportedFileType, ragerr.KindBadConfig:
			status = http.StatusBadRequest
		case ragerr.KindProviderUnavailable:
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ParsePort validates a port string; cmd/ragdag's serve command checks its
// --port value with it before opening the store.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		return 0, ragerr.New(ragerr.KindBadConfig, "invalid port "+s)
	}
	return p, nil
}
