package controller

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.ezyvote.org/ezyvote/contracts/evoting"
	"go.ezyvote.org/ezyvote/contracts/evoting/types"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/ordering"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/proxy"
	proxyhttp "go.ezyvote.org/ezyvote/proxy/http"
	"golang.org/x/xerrors"
)

func registerRoutes(srv proxy.Proxy, srvc ordering.Service) {
	srv.RegisterHandler("/evoting/events", countHandler(srvc), http.MethodGet)
	srv.RegisterHandler("/evoting/events/{id:[0-9]+}", eventHandler(srvc), http.MethodGet)
	srv.RegisterHandler("/evoting/events/{id:[0-9]+}/voters/{address}",
		voterHandler(srvc), http.MethodGet)
}

func countHandler(srvc ordering.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp types.CountResponse

		err := srvc.View(func(rd store.Readable) error {
			var err error
			resp.Count, err = evoting.EventCount(rd)
			return err
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		proxyhttp.WriteJSON(w, r, http.StatusOK, resp)
	}
}

// eventHandler returns the event with its tally and its status at the time
// of the request.
func eventHandler(srvc ordering.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusBadRequest, err)
			return
		}

		var event types.Event

		err = srvc.View(func(rd store.Readable) error {
			event, err = evoting.GetEvent(rd, id)
			return err
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		proxyhttp.WriteJSON(w, r, http.StatusOK, types.NewEventView(event, clock()))
	}
}

func voterHandler(srvc ordering.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		id, err := strconv.ParseUint(vars["id"], 10, 64)
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusBadRequest, err)
			return
		}

		voter, err := wallet.Normalize(vars["address"])
		if err != nil {
			writeError(w, r, evoting.Error{Kind: evoting.InvalidInput, Detail: err.Error()})
			return
		}

		resp := types.VoterResponse{EventID: id, Voter: voter}

		err = srvc.View(func(rd store.Readable) error {
			resp.Whitelisted, err = evoting.IsWhitelisted(rd, id, voter)
			if err != nil {
				return err
			}

			resp.HasVoted, err = evoting.HasVoted(rd, voter, id)
			return err
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		proxyhttp.WriteJSON(w, r, http.StatusOK, resp)
	}
}

// writeError maps the kind of a contract error to the status of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var e evoting.Error
	if xerrors.As(err, &e) {
		switch e.Kind {
		case evoting.EventNotFound:
			status = http.StatusNotFound
		case evoting.InvalidInput:
			status = http.StatusBadRequest
		}

		proxyhttp.WriteJSON(w, r, status, proxyhttp.ErrorResponse{
			Kind:    string(e.Kind),
			Message: e.Error(),
		})

		return
	}

	proxyhttp.WriteError(w, r, status, err)
}
