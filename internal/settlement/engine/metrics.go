package engine

import "github.com/prometheus/client_golang/prometheus"

// Métricas Prometheus do pipeline de liquidação
var (
	settledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_wagers_settled_total",
		Help: "Apostas liquidadas por status terminal",
	}, []string{"status"})

	reschedulesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_reschedules_total",
		Help: "Reagendamentos (partida não terminou ou falha transitória)",
	})

	fetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_fetch_failures_total",
		Help: "Falhas transitórias na busca de resultados no provedor",
	})

	sweepRecoveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_recovered_wagers_total",
		Help: "Apostas vencidas reprocessadas pelo sweep de inicialização",
	})

	inflightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_inflight_evaluations",
		Help: "Avaliações de aposta em andamento",
	})
)

func init() {
	prometheus.MustRegister(settledTotal, reschedulesTotal, fetchFailuresTotal, sweepRecoveredTotal, inflightGauge)
}
