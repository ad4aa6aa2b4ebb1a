package api

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/operations"
	"github.com/hive2hive/h2h/persist"
)

// Server binds one user's Operations façade to an HTTP control plane and
// a websocket event stream of pipeline state transitions.
type Server struct {
	ops *operations.Operations
	log *persist.Logger
	hub *eventHub

	apiServer         *http.Server
	listener          net.Listener
	requiredUserAgent string
}

// NewServer starts listening on addr and wires ops into the control API.
// requiredPassword, if non-empty, gates every mutating route behind HTTP
// basic auth the way the teacher's api.Server does.
func NewServer(addr, requiredUserAgent, requiredPassword string, ops *operations.Operations, log *persist.Logger) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		ops:               ops,
		log:               log,
		hub:               newEventHub(),
		listener:          l,
		requiredUserAgent: requiredUserAgent,
	}
	ops.SetEventHandler(srv.hub.broadcast)

	router := httprouter.New()
	router.NotFound = http.HandlerFunc(srv.unrecognizedCallHandler)

	router.POST("/files/*path", requirePassword(srv.addFileHandler, requiredPassword))
	router.PUT("/files/*path", requirePassword(srv.updateFileHandler, requiredPassword))
	router.DELETE("/files/*path", requirePassword(srv.deleteFileHandler, requiredPassword))
	router.POST("/move", requirePassword(srv.moveFileHandler, requiredPassword))
	router.POST("/share", requirePassword(srv.shareFolderHandler, requiredPassword))
	router.POST("/recover", requirePassword(srv.recoverFileHandler, requiredPassword))
	router.POST("/session/login", requirePassword(srv.loginHandler, requiredPassword))
	router.POST("/session/logout", requirePassword(srv.logoutHandler, requiredPassword))
	router.GET("/events", srv.eventsHandler)

	srv.apiServer = &http.Server{Handler: requireUserAgent(router, requiredUserAgent)}
	return srv, nil
}

// Serve blocks, handling API calls until Close is called.
func (srv *Server) Serve() error {
	err := srv.apiServer.Serve(srv.listener)
	if err != nil && !strings.HasSuffix(err.Error(), "use of closed network connection") {
		return err
	}
	return nil
}

// Close stops accepting connections and shuts down the event hub.
func (srv *Server) Close() error {
	srv.hub.close()
	return srv.listener.Close()
}

func (srv *Server) unrecognizedCallHandler(w http.ResponseWriter, req *http.Request) {
	writeError(w, Error{"404 - no such route"}, http.StatusNotFound)
}

func (srv *Server) addFileHandler(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	path := ps.ByName("path")
	if err := srv.ops.AddFile(req.Context(), path, req.Body, req.ContentLength); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

func (srv *Server) updateFileHandler(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	path := ps.ByName("path")
	if err := srv.ops.UpdateFile(req.Context(), path, req.Body, req.ContentLength); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

func (srv *Server) deleteFileHandler(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	path := ps.ByName("path")
	if err := srv.ops.DeleteFile(req.Context(), path); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

type moveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (srv *Server) moveFileHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body moveRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{err.Error()}, http.StatusBadRequest)
		return
	}
	if err := srv.ops.MoveFile(req.Context(), body.From, body.To); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

type shareRequest struct {
	Path                   string `json:"path"`
	FriendUserID           string `json:"friendUserId"`
	FriendProtectionKeyB64 string `json:"friendProtectionKey"`
}

func (srv *Server) shareFolderHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body shareRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{err.Error()}, http.StatusBadRequest)
		return
	}
	key, err := base64.StdEncoding.DecodeString(body.FriendProtectionKeyB64)
	if err != nil {
		writeError(w, Error{"friendProtectionKey: " + err.Error()}, http.StatusBadRequest)
		return
	}
	if err := srv.ops.ShareFolder(req.Context(), body.Path, body.FriendUserID, key); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

type recoverRequest struct {
	Path         string `json:"path"`
	VersionIndex int    `json:"versionIndex"`
	DestPath     string `json:"destPath"`
}

func (srv *Server) recoverFileHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body recoverRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{err.Error()}, http.StatusBadRequest)
		return
	}
	selector := func(versions []modules.FileVersion) (int, string, error) {
		return body.VersionIndex, body.DestPath, nil
	}
	if err := srv.ops.RecoverFile(req.Context(), body.Path, selector); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

type sessionRequest struct {
	RootPath        string `json:"rootPath"`
	SelfPeerAddress string `json:"selfPeerAddress"`
}

func (srv *Server) loginHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body sessionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{err.Error()}, http.StatusBadRequest)
		return
	}
	if err := srv.ops.Login(req.Context(), body.RootPath, body.SelfPeerAddress); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

func (srv *Server) logoutHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body sessionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{err.Error()}, http.StatusBadRequest)
		return
	}
	if err := srv.ops.Logout(req.Context(), body.SelfPeerAddress); err != nil {
		srv.writeOpError(w, err)
		return
	}
	writeSuccess(w)
}

// writeOpError maps a pipeline error to a status code and logs it.
// operations' sentinels carry no status of their own, so this matches
// against their known message substrings rather than a full error
// taxonomy.
func (srv *Server) writeOpError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case strings.Contains(err.Error(), "not found"):
		code = http.StatusNotFound
	case strings.Contains(err.Error(), "already exists"):
		code = http.StatusConflict
	}
	if srv.log != nil {
		srv.log.Println("request failed:", err)
	}
	writeError(w, Error{err.Error()}, code)
}
