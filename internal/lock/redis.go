package lock

import (
	"context"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "clientflow:lock:"

// releaseScript apaga a chave apenas se o valor ainda for o token de quem adquiriu
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis é um lock distribuído via SET NX PX
type Redis struct {
	rdb *redis.Client
}

// NewRedisClient cria o cliente Redis
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedis cria o lock sobre um cliente já configurado
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// Acquire tenta obter key por ttl. Se o Redis estiver indisponível o lock
// falha aberto: a operação segue sem exclusão e a idempotência fica com o banco.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool) {
	log := logger.Get(ctx)
	fullKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("lock", key).Msg("Redis indisponível, seguindo sem lock")
		return noop, true
	}
	if !ok {
		log.Debug().Str("lock", key).Msg("Lock já adquirido por outro processo")
		return noop, false
	}

	return func() {
		// o contexto da requisição pode já ter sido cancelado
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.rdb, []string{fullKey}, token).Err(); err != nil {
			log.Warn().Err(err).Str("lock", key).Msg("Erro ao liberar lock, expira pelo TTL")
		}
	}, true
}

// Ping verifica a conexão com o Redis
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
