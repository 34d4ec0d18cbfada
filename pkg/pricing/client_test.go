package pricing_test

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/gasgate/gasgate/pkg/pricing"
)

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		log     *logrus.Logger
	)

	newClient := func() *pricing.Client {
		client, err := pricing.NewClient(pricing.Config{
			BaseURL:      server.URL,
			APIKey:       "test-key",
			AssetID:      "ethereum",
			FiatCurrency: "usd",
			Logger:       log,
		})
		Expect(err).NotTo(HaveOccurred())
		return client
	}

	BeforeEach(func() {
		log = logrus.New()
		log.SetOutput(io.Discard)
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ethereum":{"usd":2500.0}}`))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("FetchRate", func() {
		It("fetches the rate for the configured pair", func() {
			var gotPath, gotQuery string
			handler = func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
				w.Write([]byte(`{"ethereum":{"usd":2500.0}}`))
			}

			rate, err := newClient().FetchRate(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(rate).To(Equal(2500.0))
			Expect(gotPath).To(Equal("/v3/simple/price"))
			Expect(gotQuery).To(ContainSubstring("ids=ethereum"))
			Expect(gotQuery).To(ContainSubstring("vs_currencies=usd"))
			Expect(gotQuery).To(ContainSubstring("x_cg_api_key=test-key"))
		})

		It("fails with RateUnavailable when the currency key is missing", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ethereum":{"eur":2300.0}}`))
			}

			_, err := newClient().FetchRate(context.Background())
			var rateErr *pricing.RateUnavailableError
			Expect(err).To(BeAssignableToTypeOf(rateErr))
			Expect(err.Error()).To(ContainSubstring("currency missing"))
		})

		It("fails with RateUnavailable when the asset key is missing", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"bitcoin":{"usd":60000.0}}`))
			}

			_, err := newClient().FetchRate(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("asset missing"))
		})

		It("fails with RateUnavailable on a non-2xx response", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			}

			_, err := newClient().FetchRate(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 429"))
		})

		It("fails with RateUnavailable on malformed JSON", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ethereum":`))
			}

			_, err := newClient().FetchRate(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("malformed"))
		})

		It("fails with RateUnavailable when the source is unreachable", func() {
			client := newClient()
			server.Close()

			_, err := client.FetchRate(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unreachable"))
		})
	})

	Describe("Convert", func() {
		It("multiplies the ether-scaled amount by a fresh rate", func() {
			oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

			fiat, err := newClient().Convert(context.Background(), oneEther)
			Expect(err).NotTo(HaveOccurred())
			Expect(fiat).To(BeNumerically("==", 2500.0))
		})

		It("converts zero to zero for any rate", func() {
			fiat, err := newClient().Convert(context.Background(), big.NewInt(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(fiat).To(BeZero())
		})
	})
})

var _ = Describe("ConvertAtRate", func() {
	It("is the pure product of the ether amount and the rate", func() {
		halfEther := big.NewInt(500_000_000_000_000_000)
		Expect(pricing.ConvertAtRate(halfEther, 3000.0)).To(BeNumerically("~", 1500.0, 1e-9))
		Expect(pricing.ConvertAtRate(big.NewInt(0), 1234.5)).To(BeZero())
	})
})

var _ = Describe("Config", func() {
	It("requires an API key", func() {
		_, err := pricing.NewClient(pricing.Config{Logger: logrus.New()})
		Expect(err).To(MatchError(ContainSubstring("API key")))
	})

	It("requires a logger", func() {
		_, err := pricing.NewClient(pricing.Config{APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("logger")))
	})
})
