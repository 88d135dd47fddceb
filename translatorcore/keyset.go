package translatorcore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/ehash"
)

// KeysetClient fetches the mint's active keyset over HTTP at startup,
// retrying with backoff until it succeeds. The bridge defers quote
// storage until the keyset has been handed to it.
type KeysetClient struct {
	url    string
	client *http.Client
	log    *logrus.Entry
}

func NewKeysetClient(mintURL string, timeout time.Duration, log *logrus.Entry) *KeysetClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &KeysetClient{url: mintURL, client: &http.Client{Timeout: timeout}, log: log}
}

// Run polls the mint until a keyset is acquired and handed to the
// bridge, then returns. Meant to run in its own goroutine.
func (c *KeysetClient) Run(bridge *Bridge, done <-chan struct{}) {
	bo := newBackoff(time.Second, 30*time.Second)
	for {
		id, err := c.fetch()
		if err == nil {
			bridge.SetKeysetID(id)
			c.log.WithField("keyset_id", id.String()).Info("translatorcore: keyset acquired")
			return
		}
		c.log.WithError(err).Warn("translatorcore: keyset fetch failed, retrying")
		select {
		case <-done:
			return
		case <-time.After(bo.next()):
		}
	}
}

func (c *KeysetClient) fetch() (ehash.KeysetID, error) {
	var id ehash.KeysetID
	resp, err := c.client.Get(c.url)
	if err != nil {
		return id, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return id, fmt.Errorf("keyset endpoint returned %d", resp.StatusCode)
	}
	var body struct {
		KeysetID string `json:"keyset_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return id, err
	}
	raw, err := hex.DecodeString(body.KeysetID)
	if err != nil {
		return id, err
	}
	return ehash.ParseKeysetID(raw)
}
