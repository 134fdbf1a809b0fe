package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cleanchat/cleanchat/internal/config"
	"github.com/cleanchat/cleanchat/internal/messaging"
	"github.com/cleanchat/cleanchat/internal/moderation"
)

// newClassifier builds the moderation client selected by cfg. The returned
// func releases its connection.
func newClassifier(cfg config.Config, logger zerolog.Logger) (moderation.Classifier, func(), error) {
	switch cfg.Moderation.Transport {
	case config.TransportNATS:
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATS.URL
		natsConfig.Name = "cleanchat-" + cfg.Server.Name
		client, err := messaging.NewNATSClient(natsConfig, logger)
		if err != nil {
			return nil, nil, err
		}
		return moderation.NewNATSClassifier(client, cfg.Moderation.Subject), client.Close, nil

	case config.TransportHTTP:
		return moderation.NewHTTPClassifier(cfg.Moderation.Endpoint, cfg.Moderation.Timeout), func() {}, nil
	}
	return nil, nil, errors.Errorf("unknown moderation transport %q", cfg.Moderation.Transport)
}
