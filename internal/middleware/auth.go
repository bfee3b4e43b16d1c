package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// ActorKey é a chave do model.Actor no contexto Gin
	ActorKey = "actor"

	// HeaderServiceToken carrega o token de gatilhos externos (cron)
	HeaderServiceToken = "X-Service-Token"
)

// Claims são as claims do token emitido pelo serviço de identidade
type Claims struct {
	UserType model.UserType `json:"user_type"`
	jwt.RegisteredClaims
}

// AuthConfig contém a configuração do middleware de autenticação
type AuthConfig struct {
	JWTSecret        string
	ServiceTokenHash string
}

var errInvalidUserType = errors.New("user_type inválido")

// BearerAuth valida o JWT e coloca o Actor no contexto
func BearerAuth(cfg AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "header Authorization ausente",
			})
			return
		}

		// Extrai o token do formato "Bearer {token}"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "formato inválido, esperado: Bearer {token}",
			})
			return
		}

		claims := &Claims{}
		_, err := parser.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err == nil && claims.Subject == "" {
			err = jwt.ErrTokenRequiredClaimMissing
		}
		if err == nil && claims.UserType != model.UserTypeClient && claims.UserType != model.UserTypeInternal {
			err = errInvalidUserType
		}
		if err != nil {
			logger.FromGin(c).Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("Token rejeitado")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token inválido",
			})
			return
		}

		actor := model.Actor{UserID: claims.Subject, Type: claims.UserType}
		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor.UserID, string(actor.Type)))

		c.Next()
	}
}

// ServiceAuth valida o token de serviço contra o hash bcrypt configurado
func ServiceAuth(cfg AuthConfig) gin.HandlerFunc {
	hash := []byte(cfg.ServiceTokenHash)

	return func(c *gin.Context) {
		token := c.GetHeader(HeaderServiceToken)
		if len(hash) == 0 || token == "" || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
			logger.FromGin(c).Warn().Str("client_ip", c.ClientIP()).Msg("Token de serviço rejeitado")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token de serviço inválido",
			})
			return
		}
		c.Next()
	}
}

// ActorFrom retorna o Actor autenticado; ok é false fora de rotas autenticadas
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

// IssueToken assina um token de acesso; usado por testes e pela CLI de suporte
func IssueToken(secret string, actor model.Actor, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = actor.UserID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserType: actor.Type, RegisteredClaims: claims})
	return token.SignedString([]byte(secret))
}
