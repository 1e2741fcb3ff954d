package mailbox

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
)

func newTestMailbox() *Mailbox {
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	return New(store, "failsight-results")
}

// carry copies response cookies onto a new request, as a browser would.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestMailbox_GetEmpty(t *testing.T) {
	t.Parallel()

	mb := newTestMailbox()
	raw, ok, err := mb.Get(httptest.NewRequest(http.MethodGet, "/results", nil), KeyPrediction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || raw != nil {
		t.Errorf("expected empty slot, got %q", raw)
	}
}

func TestMailbox_PutThenGet(t *testing.T) {
	t.Parallel()

	mb := newTestMailbox()
	rec := httptest.NewRecorder()
	payload := []byte(`{"prediction":1,"prediction_probability":[0.2,0.8]}`)
	if err := mb.Put(rec, httptest.NewRequest(http.MethodPost, "/predict", nil), KeyPrediction, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := carry(rec)
	raw, ok, err := mb.Get(req, KeyPrediction)
	if err != nil || !ok {
		t.Fatalf("expected stored payload, got ok=%v err=%v", ok, err)
	}
	if string(raw) != string(payload) {
		t.Errorf("expected %s, got %s", payload, raw)
	}

	// Reading does not clear the slot.
	raw, ok, _ = mb.Get(carry(rec), KeyPrediction)
	if !ok || string(raw) != string(payload) {
		t.Error("expected payload to survive a second read")
	}

	if _, ok, _ := mb.Get(req, KeyComparison); ok {
		t.Error("expected comparison slot to be independent")
	}
}

func TestMailbox_PutReplaces(t *testing.T) {
	t.Parallel()

	mb := newTestMailbox()
	rec := httptest.NewRecorder()
	if err := mb.Put(rec, httptest.NewRequest(http.MethodPost, "/predict", nil), KeyPrediction, []byte(`{"prediction":0}`)); err != nil {
		t.Fatal(err)
	}

	rec2 := httptest.NewRecorder()
	if err := mb.Put(rec2, carry(rec), KeyPrediction, []byte(`{"prediction":1}`)); err != nil {
		t.Fatal(err)
	}

	raw, _, _ := mb.Get(carry(rec2), KeyPrediction)
	if string(raw) != `{"prediction":1}` {
		t.Errorf("expected latest payload, got %s", raw)
	}
}
