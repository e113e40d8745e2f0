// Prometheus监控指标，记录谈判结果与满意度
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "metrics")

var (
	// BuyResults 购买尝试的终态计数，按结果分类
	BuyResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popsim_buy_results_total",
		Help: "Terminal results of purchase attempts",
	}, []string{"result"})

	// OfferClasses 买方报价的价格评估计数
	OfferClasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popsim_offer_classes_total",
		Help: "Price classification of offers sent by buyers",
	}, []string{"class"})

	// SellResults 卖方一次交易的终态计数
	SellResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popsim_sell_results_total",
		Help: "Terminal results of sell negotiations",
	}, []string{"result"})

	// SatisfactionTier 每日结束时居民的最高完全满足层级
	SatisfactionTier = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "popsim_full_tier_satisfaction",
		Help:    "Highest fully satisfied desire tier per pop at day end",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	})

	// DaysCompleted 已完成的模拟天数
	DaysCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "popsim_days_completed_total",
		Help: "Simulated days completed",
	})

	// DayDuration 每个模拟日的墙钟耗时
	DayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "popsim_day_duration_seconds",
		Help:    "Wall time to run one simulated day",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

// Serve 在指定地址上暴露/metrics，直到ctx结束
// 参数：ctx-生命周期控制，addr-监听地址（为空则直接返回）
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Infof("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
}
