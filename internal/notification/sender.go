package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homestay-booking/pkg/utils"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers a single message. Dispatcher retries failed sends.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender mails the rendered template.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg utils.EmailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := Render(m)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.Recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", m.Recipient, err)
	}
	return nil
}

// KafkaSender publishes the message as JSON for a downstream mailer.
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSender(brokers []string, topic string) (*KafkaSender, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return NewKafkaSenderWithProducer(producer, topic), nil
}

func NewKafkaSenderWithProducer(producer sarama.SyncProducer, topic string) *KafkaSender {
	return &KafkaSender{producer: producer, topic: topic}
}

type event struct {
	Message
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

func (s *KafkaSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := Render(m)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event{Message: m, Subject: subject, Body: body, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(m.Recipient),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("publish notification to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.producer.Close()
}

// LogSender only logs. Used in development and when no transport is set.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.With(zap.String("sender", "log"))}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	subject, _, err := Render(m)
	if err != nil {
		return err
	}

	s.log.Info("Notification",
		zap.String("recipient", m.Recipient),
		zap.String("template", string(m.Template)),
		zap.String("subject", subject),
	)
	return nil
}

// NewSender picks the transport named by cfg.Driver.
func NewSender(cfg utils.NotificationConfig, email utils.EmailConfig, log *zap.Logger) (Sender, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPSender(email), nil
	case "kafka":
		sender, err := NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case "log", "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown notification driver %q", cfg.Driver)
	}
}
