package mintcore

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// KeysetAPI exposes the mint's active keyset over HTTP so proxies can
// acquire it at startup before storing any quotes.
type KeysetAPI struct {
	store *Store
	log   *logrus.Entry
}

func NewKeysetAPI(store *Store, log *logrus.Entry) *KeysetAPI {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &KeysetAPI{store: store, log: log}
}

// Router builds the HTTP router for GET /v1/keyset.
func (a *KeysetAPI) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/keyset", a.handleKeyset).Methods("GET")
	return router
}

func (a *KeysetAPI) handleKeyset(w http.ResponseWriter, req *http.Request) {
	id, err := a.store.ActiveKeysetID()
	if err != nil {
		a.log.WithError(err).Error("mintcore: failed to load active keyset")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		KeysetID string `json:"keyset_id"`
	}{KeysetID: hex.EncodeToString(id[:])})
}
