package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	"github.com/smallbiznis/dairyos/internal/config"
	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
	recondomain "github.com/smallbiznis/dairyos/internal/reconciliation/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config

	catalogSvc     pricedomain.Service
	consumptionSvc consumptiondomain.Service
	billingSvc     billingdomain.Service
	paymentSvc     paymentdomain.Service
	webhookSvc     paymentdomain.WebhookService
	reconSvc       recondomain.Service
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config

	CatalogSvc     pricedomain.Service
	ConsumptionSvc consumptiondomain.Service
	BillingSvc     billingdomain.Service
	PaymentSvc     paymentdomain.Service
	WebhookSvc     paymentdomain.WebhookService
	ReconSvc       recondomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		catalogSvc:     p.CatalogSvc,
		consumptionSvc: p.ConsumptionSvc,
		billingSvc:     p.BillingSvc,
		paymentSvc:     p.PaymentSvc,
		webhookSvc:     p.WebhookSvc,
		reconSvc:       p.ReconSvc,
	}

	s.registerAPIRoutes()
	s.registerWebhookRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomer)
	api.POST("/customers/:id/prices", s.SetPrice)
	api.GET("/customers/:id/prices", s.ListPrices)

	api.PUT("/consumption", s.UpsertConsumption)
	api.GET("/customers/:id/consumption", s.GetConsumptionRange)
	api.GET("/customers/:id/consumption/audits", s.ListConsumptionAudits)

	api.POST("/bills/generate", s.GenerateBill)
	api.POST("/bills/generate-all", s.GenerateAllBills)
	api.GET("/customers/:id/bills", s.ListBills)
	api.GET("/customers/:id/bills/:month", s.GetBill)

	api.POST("/payments/orders", s.CreatePaymentOrder)
	api.GET("/customers/:id/payments/last", s.LastPayment)

	api.POST("/reconciliation/run", s.RunReconciliation)
	api.GET("/reconciliation/reports", s.ListReconciliationReports)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandlePaymentWebhook)
}
