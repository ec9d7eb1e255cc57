package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/zombor/splitsy/internal/bill"
	"github.com/zombor/splitsy/internal/scanning"
	"github.com/zombor/splitsy/internal/split"
)

var _ = Describe("Server", func() {
	var (
		scanner     *mockScanner
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(newTestService(scanner), auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	postJSON := func(path string, v any) *http.Response {
		data, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		return do(http.MethodPost, path, bytes.NewReader(data), "application/json")
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	upload := func(filename, contentType string, content []byte) *http.Response {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())
		return do(http.MethodPost, "/api/extract", body, writer.FormDataContentType())
	}

	BeforeEach(func() {
		scanner = newMockScanner()
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleHealth", func() {
		It("should report ok", func() {
			resp := do(http.MethodGet, "/healthz", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]string
			decode(resp, &body)
			Expect(body).To(Equal(map[string]string{"status": "ok"}))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do(http.MethodOptions, "/api/split", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("should set headers on regular responses", func() {
			resp := do(http.MethodGet, "/healthz", nil, "")
			defer resp.Body.Close()
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		})
	})

	Describe("handleExtract", func() {
		When("a receipt photo is uploaded", func() {
			It("should return the extracted bill", func() {
				resp := upload("receipt.jpg", "image/jpeg", []byte("jpeg bytes"))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var b bill.Bill
				decode(resp, &b)
				Expect(b.Items).To(HaveLen(2))
				Expect(b.Items[0].UnitPrice).To(Equal(10000.0))
				Expect(b.Total).To(Equal(40250.0))
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.WriteField("note", "no file")).To(Succeed())
				Expect(writer.Close()).To(Succeed())

				resp := do(http.MethodPost, "/api/extract", body, writer.FormDataContentType())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				var errBody map[string]string
				decode(resp, &errBody)
				Expect(errBody["error"]).To(ContainSubstring("No file was selected"))
			})
		})

		When("the body is not a multipart form", func() {
			It("should return status Bad Request", func() {
				resp := do(http.MethodPost, "/api/extract", bytes.NewReader([]byte("{}")), "application/json")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the file is empty", func() {
			It("should return status Bad Request without scanning", func() {
				resp := upload("receipt.jpg", "image/jpeg", nil)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(scanner.calls).To(BeZero())
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				scanner.err = &scanning.ExtractionError{Cause: scanning.ErrUnavailable}
			})

			It("should return status Bad Gateway with the message", func() {
				resp := upload("receipt.jpg", "image/jpeg", []byte("jpeg bytes"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				var errBody map[string]string
				decode(resp, &errBody)
				Expect(errBody["error"]).To(ContainSubstring("extraction failed"))
			})
		})
	})

	Describe("detectContentType", func() {
		It("should prefer the declared type", func() {
			Expect(detectContentType(" Image/PNG ", "receipt.jpg")).To(Equal("image/png"))
		})

		It("should fall back to the extension", func() {
			Expect(detectContentType("", "scan.PDF")).To(Equal("application/pdf"))
			Expect(detectContentType("application/octet-stream", "IMG_0001.heic")).To(Equal("image/heic"))
			Expect(detectContentType("", "notes.txt")).To(Equal("application/octet-stream"))
		})
	})

	Describe("handleNormalize", func() {
		It("should return the normalized bill", func() {
			resp := do(http.MethodPost, "/api/bills/normalize",
				bytes.NewReader([]byte(`{"items":[{"quantity":"2","name":"Sate","price":"40000"}],"tax":"11%","service":null}`)),
				"application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var b bill.Bill
			decode(resp, &b)
			Expect(b.Items).To(HaveLen(1))
			Expect(b.Items[0].Quantity).To(Equal(2))
			Expect(b.TaxPercentage).To(Equal(11.0))
		})

		It("should read typed prices with grouping and a currency prefix", func() {
			resp := do(http.MethodPost, "/api/bills/normalize",
				bytes.NewReader([]byte(`{"items":[{"name":"Nasi","quantity":"1","price":"25.000"},{"name":"Teh","quantity":1,"price":"Rp 12.500"}],"tax":"11"}`)),
				"application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var b bill.Bill
			decode(resp, &b)
			Expect(b.Items).To(HaveLen(2))
			Expect(b.Items[0].UnitPrice).To(Equal(25000.0))
			Expect(b.Items[1].UnitPrice).To(Equal(12500.0))
			Expect(b.Subtotal).To(Equal(37500.0))
			Expect(b.TaxPercentage).To(Equal(11.0))
		})

		It("should reject invalid JSON", func() {
			resp := do(http.MethodPost, "/api/bills/normalize", bytes.NewReader([]byte("{")), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var errBody map[string]string
			decode(resp, &errBody)
			Expect(errBody["error"]).To(ContainSubstring("Invalid request body"))
		})
	})

	Describe("handleNewSession", func() {
		It("should return a snapshot with default participants", func() {
			resp := postJSON("/api/sessions", sessionRequest{Bill: lunch(), Participants: 3})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var snap Snapshot
			decode(resp, &snap)
			Expect(snap.Participants).To(HaveLen(3))
			Expect(snap.Participants[2].Name).To(Equal("Person 3"))
			Expect(snap.Method).To(Equal(split.Equal))
		})

		It("should reject too many participants", func() {
			resp := postJSON("/api/sessions", sessionRequest{Bill: lunch(), Participants: maxParticipants + 1})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleResize", func() {
		It("should resize the participants", func() {
			snap := Snapshot{Bill: lunch(), Participants: []split.Participant{{ID: "a", Name: "Alice"}}}
			resp := postJSON("/api/sessions/resize", resizeRequest{Snapshot: snap, Participants: 3})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var resized Snapshot
			decode(resp, &resized)
			Expect(resized.Participants).To(HaveLen(3))
			Expect(resized.Participants[0].Name).To(Equal("Alice"))
		})

		It("should reject a negative count", func() {
			resp := postJSON("/api/sessions/resize", resizeRequest{Participants: -1})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleSplit", func() {
		It("should return the allocation", func() {
			resp := postJSON("/api/split", Snapshot{
				Bill:         lunch(),
				Participants: []split.Participant{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Budi"}},
				Method:       split.Itemized,
				Assignments:  split.Assignments{"nasi": {"a"}, "teh": {"a", "b"}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result Result
			decode(resp, &result)
			Expect(result.Participants[0].OwedAmount).To(BeNumerically("~", 57500, 1e-6))
			Expect(result.Participants[1].OwedAmount).To(BeNumerically("~", 11500, 1e-6))
			Expect(result.Shares).To(HaveLen(2))
			Expect(result.AssignedTotal).To(BeNumerically("~", 69000, 1e-6))
		})

		It("should reject an unknown split method", func() {
			resp := do(http.MethodPost, "/api/split", bytes.NewReader([]byte(`{"method":"random"}`)), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var errBody map[string]string
			decode(resp, &errBody)
			Expect(errBody["error"]).To(ContainSubstring("unknown split method"))
		})
	})

	Describe("session edits", func() {
		var snap Snapshot

		BeforeEach(func() {
			snap = Snapshot{
				Bill:         lunch(),
				Participants: []split.Participant{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Budi"}},
				Method:       split.Itemized,
				Assignments:  split.Assignments{"nasi": {"a"}, "teh": {"a", "b"}},
			}
		})

		edited := func(resp *http.Response) Snapshot {
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var out Snapshot
			decode(resp, &out)
			return out
		}

		It("should add an item from typed text", func() {
			out := edited(postJSON("/api/sessions/items", map[string]any{
				"snapshot": snap, "name": "Kerupuk", "price": "Rp 3.000", "quantity": "2",
			}))
			Expect(out.Bill.Items).To(HaveLen(3))
			Expect(out.Bill.Items[2].UnitPrice).To(Equal(3000.0))
			Expect(out.Bill.Subtotal).To(Equal(66000.0))
		})

		It("should edit only the sent fields of an item", func() {
			out := edited(postJSON("/api/sessions/items/edit", map[string]any{
				"snapshot": snap, "id": "teh", "price": "12.000",
			}))
			Expect(out.Bill.Items[1].Name).To(Equal("Es Teh"))
			Expect(out.Bill.Items[1].UnitPrice).To(Equal(12000.0))
		})

		It("should remove an item with its assignments", func() {
			out := edited(postJSON("/api/sessions/items/remove", map[string]any{"snapshot": snap, "id": "teh"}))
			Expect(out.Bill.Items).To(HaveLen(1))
			Expect(out.Assignments).NotTo(HaveKey("teh"))
		})

		It("should set charges as amounts", func() {
			out := edited(postJSON("/api/sessions/charges", map[string]any{
				"snapshot": snap, "tax": 6600, "service": 0, "as_amounts": true,
			}))
			Expect(out.Bill.TaxPercentage).To(BeNumerically("~", 11, 1e-9))
			Expect(out.Bill.ServicePercentage).To(BeZero())
		})

		It("should switch the method", func() {
			out := edited(postJSON("/api/sessions/method", map[string]any{"snapshot": snap, "method": "equal"}))
			Expect(out.Method).To(Equal(split.Equal))
		})

		It("should add, rename and remove participants", func() {
			out := edited(postJSON("/api/sessions/participants", map[string]any{"snapshot": snap}))
			Expect(out.Participants).To(HaveLen(3))
			Expect(out.Participants[2].Name).To(Equal("Person 3"))

			setupServer()
			out = edited(postJSON("/api/sessions/participants/rename", map[string]any{"snapshot": out, "id": "b", "name": "Bagus"}))
			Expect(out.Participants[1].Name).To(Equal("Bagus"))

			setupServer()
			out = edited(postJSON("/api/sessions/participants/remove", map[string]any{"snapshot": out, "id": "a"}))
			Expect(out.Participants).To(HaveLen(2))
			Expect(out.Assignments["nasi"]).To(BeEmpty())
			Expect(out.Assignments["teh"]).To(Equal([]string{"b"}))
		})

		It("should toggle an assignment", func() {
			out := edited(postJSON("/api/sessions/assignments/toggle", map[string]any{
				"snapshot": snap, "item_id": "nasi", "participant_id": "b",
			}))
			Expect(out.Assignments["nasi"]).To(Equal([]string{"a", "b"}))
		})

		It("returns 404 for an unknown item", func() {
			resp := postJSON("/api/sessions/items/edit", map[string]any{"snapshot": snap, "id": "missing", "name": "x"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			var errBody map[string]string
			decode(resp, &errBody)
			Expect(errBody["error"]).To(ContainSubstring(`item "missing"`))
		})

		It("returns 404 for an unknown participant", func() {
			resp := postJSON("/api/sessions/assignments/toggle", map[string]any{
				"snapshot": snap, "item_id": "nasi", "participant_id": "ghost",
			})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should reject adding past the participant limit", func() {
			snap.Participants = split.NewParticipants(maxParticipants, bill.NewSequenceGenerator("p"))
			resp := postJSON("/api/sessions/participants", map[string]any{"snapshot": snap})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleSummary", func() {
		var payload map[string]any

		BeforeEach(func() {
			payload = map[string]any{
				"bill":         lunch(),
				"participants": []split.Participant{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Budi"}, {ID: "c", Name: "Citra"}},
				"method":       "equal",
				"options":      map[string]bool{"strip_embellishments": true},
				"transport":    "whatsapp",
			}
		})

		It("should return the text and share link", func() {
			resp := postJSON("/api/summary", payload)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result SummaryResult
			decode(resp, &result)
			Expect(result.Text).To(HavePrefix("Split Bill Summary - Equal (split evenly)\n"))
			Expect(result.Text).To(ContainSubstring("3. Citra pays: Rp 23.000"))
			Expect(result.ShareURL).To(HavePrefix("https://wa.me/?text=%EF%BB%BF"))
		})

		It("should reject an unknown transport", func() {
			payload["transport"] = "fax"
			resp := postJSON("/api/summary", payload)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer()
		})

		It("should reject requests without credentials", func() {
			resp := postJSON("/api/split", Snapshot{})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Splitsy"))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/split", bytes.NewReader([]byte(`{}`)))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should reject wrong credentials", func() {
			req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/split", bytes.NewReader([]byte(`{}`)))
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "wrong")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should leave the health check open", func() {
			resp := do(http.MethodGet, "/healthz", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("Start", func() {
		It("should return the listen error", func() {
			err := server.Start(context.Background(), "invalid-address")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, http.ErrServerClosed)).To(BeFalse())
		})
	})
})
