package router

import (
	"github.com/dyoon/shopcart-backend/config"
	"github.com/dyoon/shopcart-backend/internal/app/controller"
	"github.com/dyoon/shopcart-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	cartController     *controller.CartController
	identityMiddleware *middleware.IdentityMiddleware
	config             *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	identityMiddleware *middleware.IdentityMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:     cartController,
		identityMiddleware: identityMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Shopcart API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		cart := v1.Group("/cart", r.identityMiddleware.Resolve())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items/:productId", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:productId", r.cartController.RemoveFromCart)
			cart.POST("/transfer", r.cartController.TransferCart)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Session-ID")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
