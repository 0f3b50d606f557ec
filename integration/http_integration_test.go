package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// getBaseURL returns the base URL for API calls.
// Uses VIGIL_BASE_URL env var if set (for container tests),
// otherwise defaults to localhost:8080.
func getBaseURL() string {
	if url := os.Getenv("VIGIL_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// httpClient creates an HTTP client with sensible defaults.
func httpClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// doRequest performs an HTTP request and returns the response.
func doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, getBaseURL()+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return httpClient().Do(req)
}

// parseResponse parses JSON response into target.
func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// envelopeData returns the "data" member of an API response.
func envelopeData(resp *http.Response) map[string]any {
	var result map[string]any
	Expect(parseResponse(resp, &result)).To(Succeed())
	data, ok := result["data"].(map[string]any)
	Expect(ok).To(BeTrue(), "response data should be an object: %v", result)
	return data
}

var _ = Describe("HTTP Integration Tests", Ordered, func() {
	var (
		alertID  string
		recordID string
	)

	BeforeAll(func() {
		resp, err := doRequest(http.MethodGet, "/healthz", nil)
		if err != nil {
			Skip(fmt.Sprintf("Server not reachable at %s: %v", getBaseURL(), err))
		}
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		// Unique per run so dedup markers from earlier runs do not interfere.
		recordID = "it-" + uuid.New().String()
	})

	AfterAll(func() {
		if alertID != "" {
			resp, err := doRequest(http.MethodDelete, "/v1/alerts/"+alertID, nil)
			if err == nil {
				resp.Body.Close()
			}
		}
	})

	Describe("Registries", func() {
		It("should list the built-in trigger kinds", func() {
			resp, err := doRequest(http.MethodGet, "/v1/triggers", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			data := envelopeData(resp)
			kinds, ok := data["kinds"].([]any)
			Expect(ok).To(BeTrue())

			names := make([]string, 0, len(kinds))
			for _, k := range kinds {
				names = append(names, k.(map[string]any)["kind"].(string))
			}
			Expect(names).To(ContainElements("author", "context", "action", "activity"))
		})

		It("should list the notifier kinds that registered", func() {
			resp, err := doRequest(http.MethodGet, "/v1/notifiers", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			data := envelopeData(resp)
			Expect(data["kinds"]).NotTo(BeEmpty())
		})
	})

	Describe("Alert lifecycle", func() {
		It("should create an alert", func() {
			payload := map[string]any{
				"author_id":         "1",
				"trigger_kind":      "context",
				"connector_context": "posts",
				"notification_kind": "highlight",
				"notification_config": map[string]string{
					"color": "blue",
				},
			}

			resp, err := doRequest(http.MethodPost, "/v1/alerts", payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			data := envelopeData(resp)
			alertID = data["id"].(string)
			Expect(data["status"]).To(Equal("enabled"))
			Expect(data["inert"]).To(BeFalse())
		})

		It("should disable and re-enable the alert", func() {
			for _, status := range []string{"disabled", "enabled"} {
				resp, err := doRequest(http.MethodPut, "/v1/alerts/"+alertID+"/status", map[string]string{"status": status})
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(envelopeData(resp)["status"]).To(Equal(status))
			}
		})
	})

	Describe("Record ingestion", func() {
		It("should accept a record and fire the alert once", func() {
			record := map[string]string{
				"record_id": recordID,
				"author_id": "7",
				"connector": "posts",
				"context":   "page",
				"action":    "updated",
			}

			// Deliver the same record twice; the alert fires once.
			for i := 0; i < 2; i++ {
				resp, err := doRequest(http.MethodPost, "/v1/records", record)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			}

			Eventually(func() []any {
				resp, err := doRequest(http.MethodGet, "/v1/records/"+recordID+"/alerts", nil)
				if err != nil {
					return nil
				}
				var result map[string]any
				if parseResponse(resp, &result) != nil {
					return nil
				}
				markers, _ := result["data"].([]any)
				return markers
			}, 10*time.Second, 200*time.Millisecond).Should(HaveLen(1))

			Eventually(func() string {
				resp, err := doRequest(http.MethodGet, "/v1/records/"+recordID+"/highlights", nil)
				if err != nil {
					return ""
				}
				var result map[string]any
				if parseResponse(resp, &result) != nil {
					return ""
				}
				marks, _ := result["data"].([]any)
				if len(marks) == 0 {
					return ""
				}
				return marks[0].(map[string]any)["color"].(string)
			}, 10*time.Second, 200*time.Millisecond).Should(Equal("blue"))
		})

		It("should reject a record without a connector", func() {
			resp, err := doRequest(http.MethodPost, "/v1/records", map[string]string{"action": "updated"})
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
