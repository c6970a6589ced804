package auth

import (
	"strings"

	"knowledgebase/internal/errors"
	"knowledgebase/redis"

	"github.com/gin-gonic/gin"
)

func AuthMiddleWare(cache *redis.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		// verify token
		token := strings.TrimPrefix(authHeader, "Bearer ")
		parsedToken, err := VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Unauthorized", err))
			ctx.Abort()
			return
		}

		userID, err := UserIDFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Unauthorized", err))
			ctx.Abort()
			return
		}

		// token must still be live in redis (logout revokes it)
		if !cache.TokenExists(ctx.Request.Context(), token) {
			ctx.Error(errors.Unauthorized("Token expired or not found", nil))
			ctx.Abort()
			return
		}

		ctx.Set("user_id", userID)
		ctx.Set("jwt_token", token)
		ctx.Next()
	}
}
