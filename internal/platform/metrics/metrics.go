package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the SkillWallet dev backend.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	otpSentTotal       prometheus.Counter
	otpVerifiedTotal   prometheus.Counter
	filesUploadedTotal prometheus.Counter
	credentialsMinted  prometheus.Counter
	registeredUsers    prometheus.Gauge
	errorsTotal        prometheus.Counter
}

// New creates and registers Prometheus metrics for the dev backend.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_requests_total",
		Help: "Total number of HTTP requests received",
	})
	otpSentTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_otp_sent_total",
		Help: "Total number of OTP codes generated and dispatched",
	})
	otpVerifiedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_otp_verified_total",
		Help: "Total number of successful OTP verifications",
	})
	filesUploadedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_files_uploaded_total",
		Help: "Total number of proof or document files stored",
	})
	credentialsMinted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_credentials_minted_total",
		Help: "Total number of skill credentials minted",
	})
	registeredUsers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wallet_registered_users",
		Help: "Number of users known to the backend",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		otpSentTotal,
		otpVerifiedTotal,
		filesUploadedTotal,
		credentialsMinted,
		registeredUsers,
		errorsTotal,
	)

	return &Metrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		otpSentTotal:       otpSentTotal,
		otpVerifiedTotal:   otpVerifiedTotal,
		filesUploadedTotal: filesUploadedTotal,
		credentialsMinted:  credentialsMinted,
		registeredUsers:    registeredUsers,
		errorsTotal:        errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncOTPSent increments the OTP sent counter.
func (m *Metrics) IncOTPSent() {
	m.otpSentTotal.Inc()
}

// IncOTPVerified increments the OTP verified counter.
func (m *Metrics) IncOTPVerified() {
	m.otpVerifiedTotal.Inc()
}

// IncFilesUploaded increments the files uploaded counter.
func (m *Metrics) IncFilesUploaded() {
	m.filesUploadedTotal.Inc()
}

// IncCredentialsMinted increments the credentials minted counter.
func (m *Metrics) IncCredentialsMinted() {
	m.credentialsMinted.Inc()
}

// SetRegisteredUsers sets the registered users gauge.
func (m *Metrics) SetRegisteredUsers(n int) {
	m.registeredUsers.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. registered users).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
