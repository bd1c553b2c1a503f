package middleware

import (
	"net/http"
	"strings"

	"github.com/annel0/happy-builder/internal/auth"
	"github.com/gin-gonic/gin"
)

// ContextBuilderID - ключ gin.Context с идентификатором строителя из токена
const ContextBuilderID = "builder_id"

// RequireEditToken проверяет JWT токен в заголовке Authorization.
// signer == nil отключает проверку (локальный режим без секрета).
func RequireEditToken(signer *auth.TokenSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		if signer == nil {
			c.Next()
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Отсутствует или неверный токен авторизации",
			})
			return
		}

		claims, err := signer.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Недействительный токен",
			})
			return
		}
		if !claims.CanEdit {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Недостаточно прав для правки мира",
			})
			return
		}

		c.Set(ContextBuilderID, claims.BuilderID)
		c.Next()
	}
}
