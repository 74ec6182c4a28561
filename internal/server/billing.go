package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
)

type generateBillRequest struct {
	CustomerID string `json:"customer_id"`
	Month      string `json:"month"`
	Wait       *bool  `json:"wait"`
}

func (s *Server) GenerateBill(c *gin.Context) {
	var req generateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.Generate(c.Request.Context(), billingdomain.GenerateRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Month:      strings.TrimSpace(req.Month),
		Wait:       req.Wait,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type generateAllRequest struct {
	Month string `json:"month"`
}

func (s *Server) GenerateAllBills(c *gin.Context) {
	var req generateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.GenerateAll(c.Request.Context(), strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBill(c *gin.Context) {
	resp, err := s.billingSvc.GetBill(c.Request.Context(), c.Param("id"), c.Param("month"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBills(c *gin.Context) {
	resp, err := s.billingSvc.ListBills(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
