package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	accounts := api.Group("/accounts")
	accounts.POST("", s.registerAccount)
	accounts.GET("", s.listAccounts)
	accounts.GET("/:id", s.getAccount)
	accounts.POST("/resend-confirmation", s.resendConfirmation)

	confirmations := api.Group("/confirmations")
	confirmations.GET("/:token", s.confirmAccount)
	confirmations.POST("", s.confirmAccount)
}
