// Package app monta o engine e seus colaboradores a partir da configuração.
// É compartilhado pela API e pelas ferramentas de linha de comando.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleberrangel/clientflow-api/internal/client"
	"github.com/cleberrangel/clientflow-api/internal/config"
	"github.com/cleberrangel/clientflow-api/internal/database"
	"github.com/cleberrangel/clientflow-api/internal/handler"
	"github.com/cleberrangel/clientflow-api/internal/lock"
	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/migration"
	"github.com/cleberrangel/clientflow-api/internal/repository"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/redis/go-redis/v9"
)

// Runtime guarda o engine e tudo que precisa ser fechado no shutdown
type Runtime struct {
	DB     *sql.DB
	Engine *service.Engine

	// Deps são as dependências opcionais checadas no readiness
	Deps map[string]handler.Pinger

	closers []func() error
}

// Build conecta ao banco, roda as migrações e escolhe os adaptadores:
// Redis ou lock em memória, broker AMQP ou log, Anthropic ou sem estimativa.
func Build(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	log := logger.Get(ctx)

	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar ao banco: %w", err)
	}
	rt := &Runtime{DB: db, Deps: make(map[string]handler.Pinger)}
	rt.closers = append(rt.closers, func() error { return database.Close(db) })

	if err := migration.NewMigrator(db).Run(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("erro ao executar migrações: %w", err)
	}

	deps := service.Deps{
		Store:             repository.NewStore(db),
		WeekLocation:      cfg.RateLimitLocation,
		MailRatePerSecond: cfg.MailRatePerSecond,
		BaseURL:           cfg.BaseURL,
	}

	if cfg.RedisAddr != "" {
		rdb := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		locker := lock.NewRedis(rdb)
		deps.Locker = locker
		rt.Deps["redis"] = locker
		rt.closers = append(rt.closers, rdb.Close)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Lock distribuído via Redis")
	} else {
		mem := lock.NewMemory()
		deps.Locker = mem
		rt.closers = append(rt.closers, func() error { mem.Stop(); return nil })
		log.Warn().Msg("REDIS_ADDR não definido, usando lock em memória")
	}

	if cfg.AMQPURL != "" {
		publisher, err := client.NewMailPublisher(cfg.AMQPURL, cfg.MailExchange)
		if err != nil {
			rt.Close()
			return nil, err
		}
		deps.Mailer = publisher
		rt.Deps["mail_broker"] = handler.PingFunc(func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("conexão com o broker fechada")
			}
			return nil
		})
		rt.closers = append(rt.closers, publisher.Close)
		log.Info().Str("exchange", cfg.MailExchange).Msg("E-mails publicados no broker")
	} else {
		deps.Mailer = client.LogMailer{}
		log.Warn().Msg("AMQP_URL não definido, e-mails apenas registrados em log")
	}

	if cfg.AnthropicAPIKey != "" {
		deps.Estimator = client.NewEstimator(client.EstimatorOptions{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			Timeout:   cfg.EstimatorTimeout,
			PerMinute: cfg.EstimatorPerMin,
		})
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY não definido, change requests sem estimativa de IA")
	}

	engine, err := service.NewEngine(deps)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Engine = engine
	return rt, nil
}

// Close libera os recursos na ordem inversa da criação
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
