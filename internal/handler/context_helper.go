package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/middleware"
	"github.com/noah-isme/sma-pickup/internal/models"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.SessionFromContext(c)
}
