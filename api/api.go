// Package api exposes the modules/operations pipelines over a local
// httprouter control plane plus a websocket event stream of process
// state transitions, grounded on the teacher's api package.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// Error is returned as the JSON body of a non-2xx API response.
type Error struct {
	Message string `json:"message"`
}

func (err Error) Error() string {
	return err.Message
}

// HttpGET makes an unauthenticated GET request with the h2h user agent,
// for use by cmd/h2hc.
func HttpGET(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "H2H-Agent")
	return http.DefaultClient.Do(req)
}

// HttpGETAuthenticated is HttpGET with HTTP basic auth attached.
func HttpGETAuthenticated(url, password string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "H2H-Agent")
	req.SetBasicAuth("", password)
	return http.DefaultClient.Do(req)
}

// HttpPOSTAuthenticated makes a POST request with the h2h user agent and
// HTTP basic auth attached. body may be nil.
func HttpPOSTAuthenticated(url string, body *strings.Reader, password string) (*http.Response, error) {
	if body == nil {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "H2H-Agent")
	req.SetBasicAuth("", password)
	return http.DefaultClient.Do(req)
}

// requireUserAgent rejects requests whose User-Agent does not contain ua.
func requireUserAgent(h http.Handler, ua string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if ua != "" && !strings.Contains(req.UserAgent(), ua) {
			writeError(w, Error{"Browser access disabled; use h2hc."}, http.StatusBadRequest)
			return
		}
		h.ServeHTTP(w, req)
	})
}

// requirePassword requires HTTP basic auth with the given password
// (username ignored). An empty password disables the check.
func requirePassword(h httprouter.Handle, password string) httprouter.Handle {
	if password == "" {
		return h
	}
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		_, pass, ok := req.BasicAuth()
		if !ok || pass != password {
			w.Header().Set("WWW-Authenticate", `Basic realm="H2H"`)
			writeError(w, Error{"API authentication failed."}, http.StatusUnauthorized)
			return
		}
		h(w, req, ps)
	}
}

func writeError(w http.ResponseWriter, err Error, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if json.NewEncoder(w).Encode(err) != nil {
		http.Error(w, "failed to encode error response", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if json.NewEncoder(w).Encode(obj) != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeSuccess(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
