package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Ars-29/bet-app-v2/internal/settlement/outcome"
	"github.com/Ars-29/bet-app-v2/internal/settlement/provider"
	"github.com/Ars-29/bet-app-v2/internal/shared/config"
	"github.com/Ars-29/bet-app-v2/internal/shared/logger"
	"github.com/Ars-29/bet-app-v2/internal/shared/metrics"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Métricas Prometheus
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "provider_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "provider_ws_messages_sent_total",
		Help: "Total de mensagens WS enviadas",
	})
	fixturesFinished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "provider_fixtures_finished_total",
		Help: "Partidas simuladas encerradas",
	})
)

// Representa uma conexão de cliente WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
}

// hub gerencia os clientes conectados e o broadcast de atualizações
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		clients: make(map[string]*clientConn),
		log:     log,
	}
}

func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		} else {
			wsMessagesSent.Inc()
		}
	}
}

// fixtureSim é uma partida simulada: estado, placar, eventos de gol
type fixtureSim struct {
	res        provider.FixtureResult
	kickoffAt  time.Time
	finishAt   time.Time
	rosterHome []string
	rosterAway []string
}

// catálogo fixo de partidas simuladas; kickoff escalonado pra exercitar
// os caminhos de reagendamento do settlement-worker
func newCatalog(now time.Time) []*fixtureSim {
	mk := func(id string, kickoffIn, duration time.Duration, rh, ra []string) *fixtureSim {
		return &fixtureSim{
			res: provider.FixtureResult{
				FixtureID: id,
				State:     "NS",
				HasScores: true,
			},
			kickoffAt:  now.Add(kickoffIn),
			finishAt:   now.Add(kickoffIn + duration),
			rosterHome: rh,
			rosterAway: ra,
		}
	}
	return []*fixtureSim{
		mk("MATCH_001", 0, 2*time.Minute,
			[]string{"Pedro", "Arrascaeta", "Gerson"}, []string{"Estevao", "Raphael Veiga", "Rony"}),
		mk("MATCH_002", 30*time.Second, 3*time.Minute,
			[]string{"Cristaldo", "Braithwaite"}, []string{"Valencia", "Alario"}),
		mk("MATCH_003", time.Minute, 4*time.Minute,
			[]string{"Yuri Alberto", "Garro"}, []string{"Guilherme", "Furch"}),
		mk("MATCH_004", 2*time.Minute, 4*time.Minute,
			[]string{"Calleri", "Luciano"}, []string{"Vegetti", "Payet"}),
	}
}

// world guarda o estado das partidas e avança a simulação
type world struct {
	mu       sync.Mutex
	fixtures map[string]*fixtureSim
}

func newWorld(now time.Time) *world {
	w := &world{fixtures: make(map[string]*fixtureSim)}
	for _, f := range newCatalog(now) {
		w.fixtures[f.res.FixtureID] = f
	}
	return w
}

// advance avança o relógio da simulação e retorna snapshots das
// partidas que mudaram de estado ou placar
func (w *world) advance(now time.Time) []provider.FixtureResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changed []provider.FixtureResult
	for _, f := range w.fixtures {
		if f.res.Finished {
			continue
		}
		switch {
		case now.After(f.finishAt):
			f.res.Finished = true
			f.res.State = "FT"
			f.res.MarketFlags = fulltimeFlags(&f.res)
			fixturesFinished.Inc()
			changed = append(changed, f.res)
		case now.After(f.kickoffAt):
			f.res.State = "LIVE"
			// ~25% de chance de gol por tick
			if rand.Intn(100) < 25 {
				w.score(f)
			}
			changed = append(changed, f.res)
		}
	}
	return changed
}

func (w *world) score(f *fixtureSim) {
	minute := int(time.Since(f.kickoffAt).Minutes()) + 1
	if rand.Intn(2) == 0 {
		f.res.HomeGoals++
		f.res.Events = append(f.res.Events, provider.GoalEvent{
			Type: "goal", Team: "home",
			Player: f.rosterHome[rand.Intn(len(f.rosterHome))], Minute: minute,
		})
	} else {
		f.res.AwayGoals++
		f.res.Events = append(f.res.Events, provider.GoalEvent{
			Type: "goal", Team: "away",
			Player: f.rosterAway[rand.Intn(len(f.rosterAway))], Minute: minute,
		})
	}
}

func (w *world) snapshot(fixtureID string) (provider.FixtureResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.fixtures[fixtureID]
	if !ok {
		return provider.FixtureResult{}, false
	}
	return f.res, true
}

// fulltimeFlags emite o veredito 1X2 junto com o resultado final,
// espelhando o campo "winning" do provedor real
func fulltimeFlags(res *provider.FixtureResult) []provider.MarketFlag {
	winner := "Draw"
	if res.HomeGoals > res.AwayGoals {
		winner = "Home"
	} else if res.AwayGoals > res.HomeGoals {
		winner = "Away"
	}
	var flags []provider.MarketFlag
	for _, sel := range []string{"Home", "Draw", "Away"} {
		flags = append(flags, provider.MarketFlag{
			MarketID:  outcome.MarketFulltimeResult,
			Selection: sel,
			Winning:   sel == winner,
		})
	}
	return flags
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(wsConnections, wsMessagesSent, fixturesFinished)

	h := newHub(log)
	w := newWorld(time.Now())

	// Avança a simulação e envia snapshots a cada 5 segundos
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			for _, res := range w.advance(time.Now()) {
				h.broadcast(res)
			}
		}
	}()

	appMux := http.NewServeMux()

	appMux.HandleFunc("/ws", func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		id := fmt.Sprintf("%d", time.Now().UnixNano())
		c := &clientConn{id: id, conn: conn}
		h.add(c)

		go func() {
			defer func() {
				h.remove(id)
				_ = conn.Close()
			}()
			for {
				// Lê e descarta mensagens do cliente para manter o socket limpo
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	// GET /provider/fixtures/{id}: resultado corrente da partida
	appMux.HandleFunc("/provider/fixtures/", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/provider/fixtures/")
		if id == "" {
			http.Error(rw, "fixtureId required", http.StatusBadRequest)
			return
		}
		res, ok := w.snapshot(id)
		if !ok {
			http.Error(rw, "not found", http.StatusNotFound)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(res)
	})

	metrics.StartMetricsServer(cfg.MetricsPort, nil)

	addr := ":" + cfg.HTTPPort
	log.Info("fixture-provider-simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, appMux); err != nil {
		log.Fatal("http", zap.Error(err))
	}
}
