package managers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// MailDeliverer sends one rendered mail; *MailManager implements it.
type MailDeliverer interface {
	Deliver(ctx context.Context, job MailJob) error
}

// QueuedMailManager publishes mail jobs to a RabbitMQ queue instead of sending them inline.
// Run consumes the same queue and hands each job to the wrapped deliverer, so a slow or failing
// mail transport never blocks a request.
type QueuedMailManager struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	deliverer MailDeliverer
}

// NewQueuedMailManager dials url and declares the durable queue.
func NewQueuedMailManager(url, queue string, deliverer MailDeliverer) (*QueuedMailManager, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	log.Infof("Mail queue %q ready", queue)
	return &QueuedMailManager{conn: conn, channel: ch, queue: queue, deliverer: deliverer}, nil
}

func (qm *QueuedMailManager) SendPasswordResetMail(ctx context.Context, email, name, link string) error {
	return qm.publish(ctx, MailJob{Kind: MailKindPasswordReset, Email: email, Name: name, Link: link})
}

func (qm *QueuedMailManager) SendContactConfirmationMail(ctx context.Context, email, name, link string) error {
	return qm.publish(ctx, MailJob{Kind: MailKindContactConfirmation, Email: email, Name: name, Link: link})
}

func (qm *QueuedMailManager) publish(ctx context.Context, job MailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return qm.channel.PublishWithContext(ctx, "", qm.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
}

// Run delivers queued jobs until ctx is done. A job that fails to deliver is requeued once;
// a job that cannot be decoded is dropped.
func (qm *QueuedMailManager) Run(ctx context.Context) error {
	consumerTag := "mailer-" + uuid.NewString()
	deliveries, err := qm.channel.Consume(qm.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = qm.channel.Cancel(consumerTag, false)
	}()

	return qm.consume(ctx, deliveries)
}

// consume handles deliveries until ctx is done or the broker closes the channel.
func (qm *QueuedMailManager) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			qm.handle(ctx, delivery)
		}
	}
}

// deliveryOutcome is what handle did with a delivery.
type deliveryOutcome int

const (
	outcomeAcked deliveryOutcome = iota
	outcomeRequeued
	outcomeDropped
)

// handle delivers one job and acknowledges it. A failed first attempt is requeued, a failed
// redelivery or an undecodable body is dropped.
func (qm *QueuedMailManager) handle(ctx context.Context, delivery amqp.Delivery) deliveryOutcome {
	var job MailJob
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		log.Errorf("Dropping undecodable mail job %s: %v", delivery.MessageId, err)
		_ = delivery.Nack(false, false)
		return outcomeDropped
	}

	if err := qm.deliverer.Deliver(ctx, job); err != nil {
		if delivery.Redelivered {
			log.Errorf("Dropping mail job %s after second failure: %v", delivery.MessageId, err)
			_ = delivery.Nack(false, false)
			return outcomeDropped
		}
		log.Warnf("Delivering mail job %s failed, requeueing: %v", delivery.MessageId, err)
		_ = delivery.Nack(false, true)
		return outcomeRequeued
	}

	_ = delivery.Ack(false)
	return outcomeAcked
}

// Close closes the underlying channel and connection.
func (qm *QueuedMailManager) Close() error {
	if qm.channel != nil {
		_ = qm.channel.Close()
	}
	if qm.conn != nil {
		return qm.conn.Close()
	}
	return nil
}
