package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
)

type upsertConsumptionRequest struct {
	CustomerID string `json:"customer_id"`
	Date       string `json:"date"`
	Quantity   string `json:"quantity"`
	EditedBy   string `json:"edited_by"`
}

func (s *Server) UpsertConsumption(c *gin.Context) {
	var req upsertConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.consumptionSvc.Upsert(c.Request.Context(), consumptiondomain.UpsertRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Date:       strings.TrimSpace(req.Date),
		Quantity:   strings.TrimSpace(req.Quantity),
		EditedBy:   strings.TrimSpace(req.EditedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetConsumptionRange(c *gin.Context) {
	resp, err := s.consumptionSvc.GetRange(c.Request.Context(), consumptiondomain.RangeRequest{
		CustomerID: c.Param("id"),
		From:       strings.TrimSpace(c.Query("from")),
		To:         strings.TrimSpace(c.Query("to")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListConsumptionAudits(c *gin.Context) {
	resp, err := s.consumptionSvc.ListAudits(c.Request.Context(), consumptiondomain.RangeRequest{
		CustomerID: c.Param("id"),
		From:       strings.TrimSpace(c.Query("from")),
		To:         strings.TrimSpace(c.Query("to")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
