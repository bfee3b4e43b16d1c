package service

import (
	"context"
	"fmt"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
)

// BestEffort runs a side effect of an already committed mutation. Errors and
// panics are logged and counted, never returned: the caller's primary action
// has succeeded regardless of what happens here.
func BestEffort(ctx context.Context, name string, fn func(context.Context) error) {
	m := metrics.Get()
	log := logger.Get(ctx)

	defer func() {
		if r := recover(); r != nil {
			m.IncrementCascade(false)
			log.Error().
				Str("cascade", name).
				Str("panic", fmt.Sprint(r)).
				Msg("Efeito colateral interrompido por panic")
		}
	}()

	if err := fn(ctx); err != nil {
		m.IncrementCascade(false)
		log.Warn().Err(err).Str("cascade", name).Msg("Efeito colateral falhou, ação principal mantida")
		return
	}

	m.IncrementCascade(true)
	log.Debug().Str("cascade", name).Msg("Efeito colateral concluído")
}
