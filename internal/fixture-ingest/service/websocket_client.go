package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ars-29/bet-app-v2/internal/fixture-ingest/publisher"
	"github.com/Ars-29/bet-app-v2/internal/settlement/provider"
	"github.com/Ars-29/bet-app-v2/pkg/contracts/events"
)

// WSClient consome o feed de partidas do provedor e publica no Kafka o
// encerramento de cada partida (uma vez por fixture por conexão).
type WSClient struct {
	URL       string                    // URL do endpoint WebSocket do provedor
	Source    string                    // nome do serviço, gravado no evento
	Log       *zap.Logger               // Logger estruturado
	Publisher *publisher.KafkaPublisher // Publisher Kafka

	published map[string]struct{} // fixtures já anunciadas como encerradas
}

// Start inicia o loop de conexão e escuta do WebSocket.
// Em caso de desconexão, tenta reconectar automaticamente com backoff.
func (c *WSClient) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		default:
			if err := c.connectAndListen(ctx); err != nil {
				c.Log.Warn("connection closed", zap.Error(err))
				time.Sleep(3 * time.Second) // Aguarda antes de tentar reconectar
			}
		}
	}
}

// connectAndListen estabelece a conexão WebSocket e processa mensagens.
// Atualizações de partidas ainda em andamento são descartadas; só o
// encerramento interessa ao settlement-worker.
func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to provider WS", zap.String("url", c.URL))

	if c.published == nil {
		c.published = make(map[string]struct{})
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			c.Log.Error("read message failed", zap.Error(err))
			return err
		}

		var update provider.FixtureResult
		if err := json.Unmarshal(message, &update); err != nil {
			c.Log.Warn("invalid message", zap.Error(err))
			continue
		}

		if !update.Finished || update.FixtureID == "" {
			continue
		}
		if _, done := c.published[update.FixtureID]; done {
			continue
		}

		ev := events.FixtureFinished{
			FixtureID: update.FixtureID,
			HomeGoals: update.HomeGoals,
			AwayGoals: update.AwayGoals,
			Ts:        time.Now().UTC(),
			Source:    c.Source,
		}
		if err := c.Publisher.Publish(ctx, ev); err != nil {
			c.Log.Error("failed to publish to Kafka", zap.Error(err))
			continue
		}
		c.published[update.FixtureID] = struct{}{}
	}
}
