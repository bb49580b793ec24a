package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
	evaluc "github.com/pokelab/pokedex/internal/usecase/eval"
	ingestuc "github.com/pokelab/pokedex/internal/usecase/ingest"
	queryuc "github.com/pokelab/pokedex/internal/usecase/query"
)

// fakeStore serves both ingestion upserts and KNN search from memory.
type fakeStore struct {
	docs []domain.Document
}

func (f *fakeStore) Upsert(_ context.Context, docs []domain.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeStore) SearchKNN(_ context.Context, _ []float32, k int) ([]domquery.ContextItem, error) {
	items := make([]domquery.ContextItem, 0, k)
	for i, d := range f.docs {
		if i >= k {
			break
		}
		items = append(items, domquery.NewContextItem(d.Content, d.Metadata, 0.9))
	}
	return items, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type fakeGenerator struct {
	answer string
}

func (g fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	return g.answer, nil
}

func newTestRouter(t *testing.T, loaded bool) chi.Router {
	t.Helper()

	store := &fakeStore{}
	logger := zap.NewNop()
	querySvc := queryuc.New(store, fakeEmbedder{}, fakeGenerator{answer: "It is a fire type."}, queryuc.Options{}, logger)
	ingestSvc := ingestuc.New(store, querySvc, "", logger)

	if loaded {
		records := []domain.EntityRecord{
			{ID: 6, Name: "charizard", Types: []string{"fire", "flying"}},
			{ID: 7, Name: "squirtle", Types: []string{"water"}},
		}
		if err := ingestSvc.Load(context.Background(), records); err != nil {
			t.Fatalf("seed load: %v", err)
		}
	}

	srv := NewServer(querySvc, ingestSvc, evaluc.New(logger), nil, nil, nil, logger)
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

type fakeFetcher struct {
	records []domain.EntityRecord
	err     error
}

func (f fakeFetcher) FetchAll(_ context.Context, _ []string) ([]domain.EntityRecord, error) {
	return f.records, f.err
}

type fakeSaver struct {
	saved []domain.EntityRecord
}

func (f *fakeSaver) Save(records []domain.EntityRecord) error {
	f.saved = append(f.saved, records...)
	return nil
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestQueryEndpoint_NotReady(t *testing.T) {
	r := newTestRouter(t, false)

	rr := doJSON(t, r, "POST", "/api/v1/query", QueryRequest{Question: "what type is charizard?"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Code != codeNotReady {
		t.Errorf("code = %s, want %s", errResp.Code, codeNotReady)
	}
}

func TestQueryEndpoint_ExactMatch(t *testing.T) {
	r := newTestRouter(t, true)

	rr := doJSON(t, r, "POST", "/api/v1/query", QueryRequest{Question: "which pokemon are fire type?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp QueryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.SearchType != "exact" {
		t.Errorf("search_type = %q, want exact", resp.SearchType)
	}
	if resp.Answer == "" {
		t.Error("answer is empty")
	}
}

func TestQueryEndpoint_Semantic(t *testing.T) {
	r := newTestRouter(t, true)

	rr := doJSON(t, r, "POST", "/api/v1/query", QueryRequest{Question: "tell me about charizard"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp QueryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.SearchType != "semantic" {
		t.Errorf("search_type = %q, want semantic", resp.SearchType)
	}
	if resp.Answer != "It is a fire type." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Context) == 0 {
		t.Error("context is empty")
	}
}

func TestQueryEndpoint_MissingQuestion(t *testing.T) {
	r := newTestRouter(t, true)

	rr := doJSON(t, r, "POST", "/api/v1/query", QueryRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	r := newTestRouter(t, true)

	rr := doJSON(t, r, "POST", "/api/v1/evaluate", EvaluateRequest{
		Items: []EvaluateItem{
			{
				Label:      "q1",
				Prediction: "Charizard is a fire type.",
				Reference:  "Charizard is a fire type.",
				Context:    []string{"Charizard is a fire and flying type."},
			},
			{
				Label:      "q2",
				Prediction: "I don't know.",
				Reference:  "Squirtle is a water type.",
			},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp EvaluateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if got := resp.Results[0].Scores["exact_match"]; got != 1.0 {
		t.Errorf("q1 exact_match = %v, want 1.0", got)
	}
	report, ok := resp.Report["f1_score"]
	if !ok {
		t.Fatal("report missing f1_score")
	}
	if report.Summary.Count != 2 {
		t.Errorf("f1_score count = %d, want 2", report.Summary.Count)
	}
}

func TestEvaluateEndpoint_EmptyItems(t *testing.T) {
	r := newTestRouter(t, true)

	rr := doJSON(t, r, "POST", "/api/v1/evaluate", EvaluateRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestLoadRecordsEndpoint(t *testing.T) {
	r := newTestRouter(t, false)

	rr := doJSON(t, r, "POST", "/api/v1/records", LoadRecordsRequest{
		Records: []domain.EntityRecord{
			{ID: 25, Name: "pikachu", Types: []string{"electric"}},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	// Loading flips the service to ready.
	rr = doJSON(t, r, "POST", "/api/v1/query", QueryRequest{Question: "which pokemon are electric type?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("query after load: status = %d", rr.Code)
	}
}

func TestLoadRecordsEndpoint_DuplicateNames(t *testing.T) {
	r := newTestRouter(t, false)

	rr := doJSON(t, r, "POST", "/api/v1/records", LoadRecordsRequest{
		Records: []domain.EntityRecord{
			{ID: 25, Name: "pikachu"},
			{ID: 26, Name: "pikachu"},
		},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, false)

	rr := doJSON(t, r, "GET", "/health", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status before load = %d, want 503", rr.Code)
	}

	r = newTestRouter(t, true)
	rr = doJSON(t, r, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status after load = %d, want 200", rr.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checks["retriever"] != "ready" {
		t.Errorf("retriever check = %q, want ready", resp.Checks["retriever"])
	}
}

func TestIngestEndpoint_PersistsFetchedRecords(t *testing.T) {
	store := &fakeStore{}
	logger := zap.NewNop()
	querySvc := queryuc.New(store, fakeEmbedder{}, fakeGenerator{answer: "ok"}, queryuc.Options{}, logger)
	ingestSvc := ingestuc.New(store, querySvc, "", logger)

	fetched := []domain.EntityRecord{
		{ID: 6, Name: "charizard", Types: []string{"fire", "flying"}},
	}
	saver := &fakeSaver{}
	srv := NewServer(querySvc, ingestSvc, evaluc.New(logger), nil, fakeFetcher{records: fetched}, saver, logger)
	r := chi.NewRouter()
	srv.Register(r)

	rr := doJSON(t, r, "POST", "/api/v1/ingest", IngestRequest{Names: []string{"charizard"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp LoadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Loaded != 1 {
		t.Errorf("loaded = %d, want 1", resp.Loaded)
	}
	if len(saver.saved) != 1 || saver.saved[0].Name != "charizard" {
		t.Errorf("saved records = %v, want the fetched charizard record", saver.saved)
	}
	if !querySvc.Ready() {
		t.Error("service should be ready after ingestion")
	}
}
