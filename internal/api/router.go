package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/moodlog/internal/api/handlers"
	"github.com/your-org/moodlog/internal/api/ws"
	"github.com/your-org/moodlog/internal/auth"
	"github.com/your-org/moodlog/internal/queue"
	"github.com/your-org/moodlog/internal/storage"
	"github.com/your-org/moodlog/internal/vision"
)

type RouterConfig struct {
	JWTKey   string
	TokenTTL time.Duration
	DB       *storage.PostgresStore
	Avatars  *storage.AvatarStore
	Producer *queue.Producer
	Hub      *ws.Hub
	// Classify runs the inference pipeline on raw image bytes.
	Classify func(imageData []byte) (vision.Result, error)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLog())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Avatars, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwtKey := []byte(cfg.JWTKey)
	accountH := handlers.NewAccountHandler(cfg.DB, cfg.Avatars, jwtKey, cfg.TokenTTL)
	emotionH := handlers.NewEmotionHandler(cfg.DB, cfg.Producer, cfg.Classify)

	v1 := r.Group("/v1")

	// Sign-up and login are the only unauthenticated account routes.
	v1.POST("/accounts", accountH.Signup)
	v1.POST("/auth/login", accountH.Login)

	// Everything scoped to an account requires a matching session.
	acct := v1.Group("/accounts/:handle")
	acct.Use(auth.Middleware(jwtKey))
	acct.GET("", accountH.Get)
	acct.DELETE("", accountH.Delete)
	acct.PUT("/avatar", accountH.UpdateAvatar)
	acct.GET("/avatar", accountH.GetAvatar)
	acct.POST("/classify", emotionH.Classify)
	acct.GET("/log", emotionH.List)
	acct.GET("/log/:id/similar", emotionH.Similar)

	// Live dashboard feed
	v1.GET("/ws", auth.Middleware(jwtKey), cfg.Hub.HandleWS)

	return r
}
