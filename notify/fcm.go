package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/dmachibya/faithexercises-api/domain"
)

var errCredentialsMissing = errors.New("fcm credentials not configured")

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMConfig selects the Firebase project and service account.
type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
}

// FCMGateway sends topic messages through Firebase Cloud Messaging HTTP v1.
type FCMGateway struct {
	client messagingClient
	logger *log.Logger
}

// NewFCMGateway builds a gateway. Missing configuration is not an error: the
// gateway is created but every send fails with domain.ErrDeliveryFailed, so
// entity writes keep working without push credentials.
func NewFCMGateway(ctx context.Context, cfg FCMConfig, logger *log.Logger) (*FCMGateway, error) {
	g := &FCMGateway{logger: logger}
	if cfg.ProjectID == "" || (cfg.CredentialsFile == "" && cfg.CredentialsJSON == "") {
		logger.Warn("FCM project id or credentials missing, push delivery disabled")
		return g, nil
	}
	var opt option.ClientOption
	if cfg.CredentialsJSON != "" {
		opt = option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	} else {
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *FCMGateway) SendToTopic(ctx context.Context, topic string, msg Message) error {
	if g.client == nil {
		g.logger.WithField("topic", topic).Error("FCM send skipped: credentials not configured")
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, errCredentialsMissing)
	}
	m := &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Data: msg.Data,
	}
	id, err := g.client.Send(ctx, m)
	if err != nil {
		g.logger.WithFields(log.Fields{"topic": topic, "error": err}).Error("FCM send failed")
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	g.logger.WithFields(log.Fields{"topic": topic, "message_id": id}).Info("FCM send success")
	return nil
}
