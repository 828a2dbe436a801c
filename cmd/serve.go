package cmd

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vaultroute/config"
	"vaultroute/pkg/catalog"
	"vaultroute/pkg/profile"
	"vaultroute/pkg/relay"
	"vaultroute/pkg/routing"
	"vaultroute/pkg/vaults"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard backend",
	Long: `Start the HTTP backend serving the merchant dashboard: the swap-intent
relay, vault status and position reads, route analysis, and merchant profile
storage.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	statusReader   *vaults.StatusReader
	positionReader *vaults.PositionReader
	profiles       *profile.Store
	log            logrus.FieldLogger
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	srv := &server{
		statusReader:   vaults.NewStatusReader(cfg.StatusFeedURL, log),
		positionReader: vaults.NewPositionReader(cfg.PositionsURL, log),
		profiles:       profile.NewStore(cfg.RedisAddr),
		log:            log,
	}
	defer srv.profiles.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	relay.New(cfg.IntentBaseURL, cfg.IntentToken, log).Register(e)

	e.GET("/api/vaults", srv.handleVaults)
	e.GET("/api/vaults/status", srv.handleVaultStatus)
	e.GET("/api/positions/:owner", srv.handlePositions)
	e.POST("/api/routes", srv.handleRoutes)
	e.POST("/api/profile", srv.handleProfileUpsert)
	e.GET("/api/profile/:id", srv.handleProfileGet)

	log.WithField("addr", cfg.ListenAddr).Info("starting server")
	if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server stopped")
	}
}

func (s *server) handleVaults(c echo.Context) error {
	return c.JSON(http.StatusOK, catalog.Vaults())
}

func (s *server) handleVaultStatus(c echo.Context) error {
	result := s.statusReader.Read(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"vaults":   result.Vaults,
		"degraded": result.Degraded,
	})
}

func (s *server) handlePositions(c echo.Context) error {
	result := s.positionReader.Positions(c.Request().Context(), c.Param("owner"))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"positions": result.Positions,
		"degraded":  result.Degraded,
	})
}

type routeRequest struct {
	ChainID           uint64 `json:"chainId"`
	TokenAddress      string `json:"tokenAddress"`
	TokenSymbol       string `json:"tokenSymbol,omitempty"`
	Amount            string `json:"amount"`
	PreferredProtocol string `json:"preferredProtocol,omitempty"`
}

func (s *server) handleRoutes(c echo.Context) error {
	var req routeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	analysis, err := routing.AnalyzeRoute(routing.Input{
		ChainID:           req.ChainID,
		TokenAddress:      req.TokenAddress,
		TokenSymbol:       req.TokenSymbol,
		Amount:            req.Amount,
		PreferredProtocol: catalog.Protocol(req.PreferredProtocol),
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, analysis)
}

func (s *server) handleProfileUpsert(c echo.Context) error {
	var p profile.Profile
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := s.profiles.Upsert(c.Request().Context(), p); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *server) handleProfileGet(c echo.Context) error {
	p, err := s.profiles.Get(c.Request().Context(), c.Param("id"))
	if err == profile.ErrNotFound {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "profile not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, p)
}
