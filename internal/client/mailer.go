package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// MailRoutingKey é a chave de roteamento das mensagens de e-mail
	MailRoutingKey = "mail.send"

	publishTimeout = 5 * time.Second
)

// ErrPublisherClosed indica publicação após Close
var ErrPublisherClosed = errors.New("publicador de e-mail fechado")

// MailEnvelope é o corpo publicado para o worker de e-mail
type MailEnvelope struct {
	To        string             `json:"to"`
	Message   model.EmailMessage `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	QueuedAt  time.Time          `json:"queued_at"`
}

// channel é o subconjunto de *amqp.Channel usado pelo publicador
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// MailPublisher entrega e-mails ao broker; o envio SMTP fica com o worker
type MailPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	closed   bool
}

// NewMailPublisher conecta ao broker e declara a exchange topic
func NewMailPublisher(url, exchange string) (*MailPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar ao broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("erro ao abrir canal: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("erro ao declarar exchange: %w", err)
	}

	return &MailPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newMailPublisherWithChannel(ch channel, exchange string) *MailPublisher {
	return &MailPublisher{ch: ch, exchange: exchange}
}

// Send publica a mensagem como JSON persistente
func (p *MailPublisher) Send(ctx context.Context, to string, msg model.EmailMessage) error {
	body, err := json.Marshal(MailEnvelope{
		To:        to,
		Message:   msg,
		RequestID: logger.GetRequestID(ctx),
		QueuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, MailRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         msg.Template,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("erro ao publicar e-mail: %w", err)
	}
	return nil
}

// IsConnected informa se a conexão com o broker segue aberta
func (p *MailPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.conn != nil && !p.conn.IsClosed()
}

// Close fecha canal e conexão
func (p *MailPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// LogMailer só registra os e-mails; usado quando AMQP_URL não está definido
type LogMailer struct{}

// Send implementa service.EmailSender
func (LogMailer) Send(ctx context.Context, to string, msg model.EmailMessage) error {
	logger.Get(ctx).Info().
		Str("to", to).
		Str("template", msg.Template).
		Str("subject", msg.Subject).
		Str("project_id", msg.ProjectID).
		Msg("E-mail não enviado (broker não configurado)")
	return nil
}
