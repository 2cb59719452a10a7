package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArticlesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podsmith_articles_ingested_total",
		Help: "The total number of ingested articles by outcome",
	}, []string{"outcome"})

	ClustersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podsmith_clusters_created_total",
		Help: "The total number of story clusters created",
	})

	ClusterJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podsmith_cluster_joins_total",
		Help: "The total number of articles joined to existing clusters",
	})

	FeedPollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podsmith_feed_poll_errors_total",
		Help: "The total number of feed poll failures by feed host",
	}, []string{"host"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podsmith_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	EmbeddingRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "podsmith_embedding_request_duration_seconds",
		Help:    "Duration of embedding requests",
		Buckets: prometheus.DefBuckets,
	})

	TTSRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "podsmith_tts_request_duration_seconds",
		Help:    "Duration of TTS synthesis requests",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
	})

	TTSSegmentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podsmith_tts_segment_failures_total",
		Help: "Segments replaced with silence after synthesis failure",
	})

	EpisodesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podsmith_episodes_generated_total",
		Help: "The total number of episode generations by final status",
	}, []string{"status"})

	EpisodeStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podsmith_episode_stage_duration_seconds",
		Help:    "Duration of each episode generation stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	EpisodeSelectedClusters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "podsmith_episode_selected_clusters",
		Help: "Number of clusters selected for the most recent episode",
	})

	ContentExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podsmith_content_extraction_failures_total",
		Help: "Anchor articles whose content extraction failed",
	})
)
