package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/grupokali/portal/internal/config"
)

// CORS lets the portal front end call the API. Downloads expose Content-Disposition
// so the browser can keep the original file name.
func CORS(cfg *config.Config) fiber.Handler {
	origins := make([]string, 0)
	for _, o := range strings.Split(cfg.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, "*")
	}

	return cors.New(cors.Config{
		AllowOrigins:  strings.Join(origins, ","),
		AllowHeaders:  "Origin, Content-Type, Authorization, Accept, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Request-ID",
		MaxAge:        600,
	})
}
