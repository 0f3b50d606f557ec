package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vigil-go/internal/config"
	"vigil-go/internal/dispatch"
	"vigil-go/internal/domain"
	"vigil-go/internal/engine"
	"vigil-go/internal/lifecycle"
	"vigil-go/internal/notifier"
	"vigil-go/internal/notifier/webhook"
	"vigil-go/internal/processor"
	queuemem "vigil-go/internal/queue/memory"
	"vigil-go/internal/store/memory"
	"vigil-go/internal/trigger"
)

const signingSecret = "it-secret"

// receiver is a webhook endpoint that counts deliveries and checks signatures.
type receiver struct {
	server    *httptest.Server
	hits      atomic.Int32
	badSigned atomic.Int32
	failing   atomic.Bool
}

func newReceiver() *receiver {
	r := &receiver{}
	signer := webhook.NewSigner(signingSecret)
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		if !signer.Verify(body, req.Header.Get(webhook.SignatureHeader)) {
			r.badSigned.Add(1)
		}
		r.hits.Add(1)
		if r.failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return r
}

var _ = Describe("Record pipeline", func() {
	var (
		ctx        context.Context
		hook       *receiver
		tracker    *memory.DedupTracker
		highlights *memory.HighlightStore
		pool       *dispatch.Pool
		alerts     *lifecycle.Service
		proc       *processor.Service
		results    chan *domain.DispatchResult
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))

		hook = newReceiver()
		DeferCleanup(hook.server.Close)

		repo := memory.NewAlertRepository()
		tracker = memory.NewDedupTracker()
		highlights = memory.NewHighlightStore()

		triggers := trigger.NewRegistry(logger)
		triggers.RegisterAll(trigger.Builtins()...)

		notifiers := notifier.NewRegistry(logger)
		notifiers.RegisterAll(
			notifier.NewNoneNotifier(logger),
			notifier.NewHighlightNotifier(highlights),
			webhook.NewWebhook(&config.WebhookConfig{Timeout: 5 * time.Second, SigningSecret: signingSecret}),
		)

		results = make(chan *domain.DispatchResult, 64)
		dispatcher := dispatch.New(notifiers, tracker, dispatch.Options{
			Timeout:    2 * time.Second,
			Unresolved: config.UnresolvedRetry,
			Observers: []dispatch.Observer{
				dispatch.ObserverFunc(func(r *domain.DispatchResult) { results <- r }),
			},
		}, logger)
		pool = dispatch.NewPool(dispatcher, 4, 32, logger)
		DeferCleanup(func() { _ = pool.Shutdown(context.Background()) })

		alerts = lifecycle.NewService(repo, triggers, notifiers, logger)
		proc = processor.NewService(queuemem.NewQueue(8, logger), repo, engine.New(triggers, logger), pool, logger)
	})

	createAlert := func(req *domain.CreateAlertRequest) *domain.Alert {
		alert, err := alerts.Create(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		return alert
	}

	record := func(id, connector, objectType, action string) *domain.Record {
		return &domain.Record{
			ID:        id,
			AuthorID:  "7",
			Connector: connector,
			Context:   objectType,
			Action:    action,
			CreatedAt: time.Now().UTC(),
		}
	}

	It("delivers a signed webhook exactly once under concurrent duplicates", func() {
		createAlert(&domain.CreateAlertRequest{
			AuthorID:           "1",
			TriggerKind:        trigger.KindContext,
			TriggerFilters:     domain.Filters{domain.DimensionConnector: {"posts"}},
			NotificationKind:   notifier.KindWebhook,
			NotificationConfig: map[string]string{"url": hook.server.URL},
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				rec := record("r-1", "posts", "post", "updated")
				Expect(proc.OnRecordInserted(ctx, rec)).To(BeIdenticalTo(rec))
			}()
		}
		wg.Wait()

		Expect(hook.hits.Load()).To(Equal(int32(1)))
		Expect(hook.badSigned.Load()).To(BeZero())

		markers, err := tracker.ListByRecord(ctx, "r-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(markers).To(HaveLen(1))
		Expect(markers[0].Outcome).To(Equal(domain.OutcomeSent))
	})

	It("keeps dispatching siblings when one notifier fails", func() {
		hook.failing.Store(true)

		failing := createAlert(&domain.CreateAlertRequest{
			AuthorID:           "1",
			TriggerKind:        trigger.KindAction,
			TriggerFilters:     domain.Filters{domain.DimensionAction: {"deleted"}},
			NotificationKind:   notifier.KindWebhook,
			NotificationConfig: map[string]string{"url": hook.server.URL},
		})
		highlight := createAlert(&domain.CreateAlertRequest{
			AuthorID:           "1",
			TriggerKind:        trigger.KindActivity,
			ConnectorContext:   "posts-page",
			NotificationKind:   notifier.KindHighlight,
			NotificationConfig: map[string]string{"color": "red"},
		})

		report, err := proc.ProcessRecord(ctx, record("r-2", "posts", "page", "deleted"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Matched).To(ConsistOf(failing.ID, highlight.ID))

		outcomes := map[string]domain.Outcome{}
		for _, r := range report.Results {
			outcomes[r.AlertID] = r.Outcome
		}
		Expect(outcomes).To(HaveKeyWithValue(failing.ID, domain.OutcomeFailed))
		Expect(outcomes).To(HaveKeyWithValue(highlight.ID, domain.OutcomeSent))

		marks, err := highlights.ListByRecord(ctx, "r-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(marks).To(HaveLen(1))
		Expect(marks[0].Color).To(Equal("red"))

		// The failed attempt is not retried.
		hook.failing.Store(false)
		_, err = proc.ProcessRecord(ctx, record("r-2", "posts", "page", "deleted"))
		Expect(err).NotTo(HaveOccurred())
		Expect(hook.hits.Load()).To(Equal(int32(1)))
	})

	It("ignores disabled alerts and fires again once re-enabled for new records", func() {
		alert := createAlert(&domain.CreateAlertRequest{
			AuthorID:         "1",
			TriggerKind:      trigger.KindAuthor,
			NotificationKind: notifier.KindNone,
		})
		_, err := alerts.SetStatus(ctx, alert.ID, domain.AlertStatusDisabled)
		Expect(err).NotTo(HaveOccurred())

		report, err := proc.ProcessRecord(ctx, record("r-3", "users", "profiles", "login"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Matched).To(BeEmpty())

		_, err = alerts.SetStatus(ctx, alert.ID, domain.AlertStatusEnabled)
		Expect(err).NotTo(HaveOccurred())

		report, err = proc.ProcessRecord(ctx, record("r-4", "users", "profiles", "login"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Matched).To(ConsistOf(alert.ID))
		Eventually(results).Should(Receive(HaveField("Outcome", domain.OutcomeSent)))
	})

	It("leaves pairs with an unregistered notifier unmarked", func() {
		alert := createAlert(&domain.CreateAlertRequest{
			AuthorID:         "1",
			TriggerKind:      trigger.KindContext,
			NotificationKind: "sms",
		})
		Expect(alerts.Inert(alert)).To(BeTrue())

		report, err := proc.ProcessRecord(ctx, record("r-5", "posts", "post", "updated"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Results).To(HaveLen(1))
		Expect(report.Results[0].Outcome).To(Equal(domain.OutcomeNotifierUnavailable))

		fired, err := tracker.AlreadyFired(ctx, alert.ID, "r-5")
		Expect(err).NotTo(HaveOccurred())
		Expect(fired).To(BeFalse())
	})
})
