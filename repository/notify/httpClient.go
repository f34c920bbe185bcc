package notifyrepo

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"libcirc/util/httpx"
)

type httpRepo struct {
	webhookURL string
	client     *http.Client
}

func NewHTTP(webhookURL string, timeout time.Duration) Repo {
	return &httpRepo{webhookURL: webhookURL, client: httpx.New(timeout)}
}

func (r *httpRepo) SendOverdueNotice(n OverdueNotice) error {
	b, err := jsoniter.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, r.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("overdue notice webhook failed: %s", resp.Status)
	}
	return nil
}
