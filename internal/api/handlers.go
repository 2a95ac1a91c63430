package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/auth"
	"github.com/boilerplate-hub/repo-catalog/internal/catalog"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
	"github.com/gin-gonic/gin"
)

type idRequest struct {
	ID string `json:"id"`
}

type listRequest struct {
	URL   string `json:"url"`
	Limit int    `json:"limit"`
}

type searchRequest struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit"`
	SearchType   string `json:"searchType"`
	PositiveOnly bool   `json:"positive_only"`
}

// readsQuery reports whether parameters come from the query string.
// GET and DELETE read the query string; POST reads a JSON body.
func readsQuery(c *gin.Context) bool {
	return c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete
}

func bindBody(c *gin.Context, op string, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		respondError(c, apperrors.Validation(op, "Request body must be valid JSON."), "")
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleAddItem(c *gin.Context) {
	var req catalog.AddRequest
	if !bindBody(c, "api.AddItem", &req) {
		return
	}

	item, err := s.catalog.AddItem(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to add item.")
		return
	}

	s.audit(c, "Item added", item.ID)
	respond(c, http.StatusCreated, "GitHub repository item added successfully to Redis database.", gin.H{"item": item})
}

// audit records which authenticated user changed the catalog
func (s *Server) audit(c *gin.Context, action, id string) {
	fields := map[string]interface{}{
		"id":         id,
		"request_id": c.GetString("request_id"),
	}
	if user, ok := auth.UserFromContext(c); ok {
		fields["username"] = user.Username
	}
	s.logger.Info(action, fields)
}

func (s *Server) itemID(c *gin.Context, op string) (string, bool) {
	if readsQuery(c) {
		return c.Query("id"), true
	}
	var req idRequest
	if !bindBody(c, op, &req) {
		return "", false
	}
	return req.ID, true
}

func (s *Server) handleGetItem(c *gin.Context) {
	id, ok := s.itemID(c, "api.GetItem")
	if !ok {
		return
	}

	item, err := s.catalog.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve item.")
		return
	}

	respond(c, http.StatusOK, "GitHub repository item retrieved successfully.", gin.H{"item": item})
}

func (s *Server) handleDeleteItem(c *gin.Context) {
	id, ok := s.itemID(c, "api.DeleteItem")
	if !ok {
		return
	}

	deleted, err := s.catalog.DeleteItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, fmt.Sprintf("Failed to delete item with ID '%s'", id))
		return
	}

	s.audit(c, "Item deleted", deleted.ID)
	respond(c, http.StatusOK,
		fmt.Sprintf("GitHub repository '%s' deleted successfully", deleted.RepositoryName),
		gin.H{"deletedItem": deleted})
}

func (s *Server) handleListItemsByURL(c *gin.Context) {
	var req listRequest
	if readsQuery(c) {
		req = listRequest{URL: c.Query("url"), Limit: queryInt(c, "limit")}
	} else if !bindBody(c, "api.ListItemsByURL", &req) {
		return
	}

	items, err := s.catalog.ListByURL(c.Request.Context(), req.URL, req.Limit)
	if err != nil {
		respondError(c, err, "Failed to list items by URL.")
		return
	}

	respond(c, http.StatusOK, fmt.Sprintf("Found %d items for URL: %s", len(items), req.URL), gin.H{
		"results": gin.H{
			"total": len(items),
			"items": items,
		},
	})
}

func (s *Server) handleSearchItems(c *gin.Context) {
	var req searchRequest
	if readsQuery(c) {
		positive, _ := strconv.ParseBool(c.Query("positive_only"))
		req = searchRequest{
			Query:        c.Query("query"),
			Limit:        queryInt(c, "limit"),
			SearchType:   c.Query("searchType"),
			PositiveOnly: positive,
		}
	} else if !bindBody(c, "api.SearchItems", &req) {
		return
	}

	searchType, err := search.ParseType(req.SearchType)
	if err != nil {
		respondError(c, err, "")
		return
	}

	results, err := s.catalog.Search(c.Request.Context(), search.Request{
		Query:        req.Query,
		Limit:        req.Limit,
		Type:         searchType,
		PositiveOnly: req.PositiveOnly,
	})
	if err != nil {
		respondError(c, err, "Failed to search items.")
		return
	}
	if results == nil {
		results = []search.Result{}
	}

	respond(c, http.StatusOK,
		fmt.Sprintf("Found %d items matching your query using %s embeddings.", len(results), searchType),
		gin.H{
			"results": gin.H{
				"total": len(results),
				"items": results,
			},
		})
}

func (s *Server) handleInitIndex(c *gin.Context) {
	status, err := s.catalog.InitIndex(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to initialize search index.")
		return
	}

	if status.Exists {
		respond(c, http.StatusOK, "Search index already exists and is ready.", gin.H{
			"indexExists": true,
			"indexed":     status.Indexed,
		})
		return
	}

	respond(c, http.StatusCreated, "Search index created successfully.", gin.H{
		"indexExists": false,
		"indexed":     status.Indexed,
	})
}
